package platforms

import (
	"errors"
	"fmt"
)

// ID identifies one of the supported publishing platforms.
type ID string

const (
	Bilibili    ID = "bilibili"
	Xiaohongshu ID = "xiaohongshu"
	Douyin      ID = "douyin"
	Kuaishou    ID = "kuaishou"
)

// ErrUnknownPlatform indicates an identifier outside the fixed catalogue.
var ErrUnknownPlatform = errors.New("unknown platform")

// Platform describes a publishing destination.
type Platform struct {
	ID   ID
	Name string
}

var catalogue = []Platform{
	{ID: Bilibili, Name: "Bilibili"},
	{ID: Xiaohongshu, Name: "Xiaohongshu"},
	{ID: Douyin, Name: "Douyin"},
	{ID: Kuaishou, Name: "Kuaishou"},
}

// All returns every platform in display order. Publishing follows the same order.
func All() []Platform {
	out := make([]Platform, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup returns the platform with the given identifier.
func Lookup(id ID) (Platform, error) {
	for _, p := range catalogue {
		if p.ID == id {
			return p, nil
		}
	}
	return Platform{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, string(id))
}

// Parse converts a raw identifier, typically from a URL, into an ID.
func Parse(raw string) (ID, error) {
	p, err := Lookup(ID(raw))
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// Index reports the position of id in the catalogue, or -1.
func Index(id ID) int {
	for i, p := range catalogue {
		if p.ID == id {
			return i
		}
	}
	return -1
}
