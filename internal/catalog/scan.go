package catalog

import "github.com/tidwall/gjson"

// NodeKind classifies a node of an artist feed tree.
type NodeKind int

const (
	Leaf NodeKind = iota
	Container
	TrackLike
	AlbumLike
)

func (k NodeKind) String() string {
	switch k {
	case Container:
		return "container"
	case TrackLike:
		return "track"
	case AlbumLike:
		return "album"
	default:
		return "leaf"
	}
}

// IsTrackLike reports an object carrying id, title, duration and audioQuality.
func IsTrackLike(n gjson.Result) bool {
	return n.IsObject() &&
		truthy(n.Get("id")) && truthy(n.Get("title")) &&
		truthy(n.Get("duration")) && truthy(n.Get("audioQuality"))
}

// IsAlbumLike reports an object carrying id, title and cover but no duration.
// A track without a duration that has a cover is therefore classified as an
// album.
func IsAlbumLike(n gjson.Result) bool {
	return n.IsObject() &&
		truthy(n.Get("id")) && truthy(n.Get("title")) &&
		truthy(n.Get("cover")) && !truthy(n.Get("duration"))
}

func Classify(n gjson.Result) NodeKind {
	switch {
	case IsTrackLike(n):
		return TrackLike
	case IsAlbumLike(n):
		return AlbumLike
	case n.IsObject(), n.IsArray():
		return Container
	default:
		return Leaf
	}
}

// Walk visits every object in the tree in document order. Objects with an
// "items" field only descend into it; other objects descend into every
// object or array valued field.
func Walk(n gjson.Result, visit func(node gjson.Result, kind NodeKind)) {
	switch {
	case n.IsArray():
		n.ForEach(func(_, v gjson.Result) bool {
			Walk(v, visit)
			return true
		})
	case n.IsObject():
		visit(n, Classify(n))
		if items := n.Get("items"); truthy(items) {
			Walk(items, visit)
			return
		}
		n.ForEach(func(_, v gjson.Result) bool {
			if v.IsObject() || v.IsArray() {
				Walk(v, visit)
			}
			return true
		})
	}
}

// collect gathers nodes of one kind, deduplicated by id. A later duplicate
// replaces the earlier value but keeps its position.
func collect[T any](root gjson.Result, want NodeKind, parse func(gjson.Result) (T, bool), id func(T) string) []T {
	var out []T
	index := map[string]int{}
	Walk(root, func(node gjson.Result, kind NodeKind) {
		if kind != want {
			return
		}
		v, ok := parse(node)
		if !ok {
			return
		}
		if i, seen := index[id(v)]; seen {
			out[i] = v
			return
		}
		index[id(v)] = len(out)
		out = append(out, v)
	})
	if len(out) > feedLimit {
		out = out[:feedLimit]
	}
	return out
}
