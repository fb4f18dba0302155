package resource

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Path helpers map REST-ish resource paths to and from (resource, id)
// pairs. Paths are canonical: they start with "/", the first segment is the
// resource name, and item ids are UUIDs (with "self" allowed as an alias
// for the authenticated user's own item).

// ListPath returns the fetch key for a resource's global list.
func ListPath(resourceName string) string {
	return "/" + resourceName
}

// ItemPath returns the fetch key for a single item.
func ItemPath(resourceName, id string) string {
	return fmt.Sprintf("/%s/%s/", resourceName, id)
}

// EventsPath returns the fetch key for an item's event list.
func EventsPath(resourceName, id string) string {
	return fmt.Sprintf("/%s/%s/events", resourceName, id)
}

func splitPath(path string) ([]string, string, error) {
	pathName, query, _ := strings.Cut(path, "?")
	if !strings.HasPrefix(pathName, "/") {
		return nil, "", fmt.Errorf("resource: cannot extract resource from non-canonical path %q", path)
	}
	bits := strings.Split(strings.TrimSuffix(pathName[1:], "/"), "/")
	return bits, query, nil
}

func isItemID(s string) bool {
	if s == "self" {
		return true
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// ExtractResource returns the addressed resource name based solely on path
// structure, or "" when the path does not follow a recognized shape. It
// does not check the name against any registry.
func ExtractResource(path string) string {
	bits, _, err := splitPath(path)
	if err != nil {
		return ""
	}
	switch {
	case len(bits) == 1: // global list
		return bits[0]
	case len(bits) == 2 && (bits[1] == "create" || isItemID(bits[1])): // create or view item
		return bits[0]
	case len(bits) == 3 && bits[2] == "edit": // edit item
		return bits[0]
	case len(bits) == 3 && isItemID(bits[1]): // context list: /ctx/<id>/resource
		return bits[2]
	default:
		return ""
	}
}

// ExtractItem returns the (resource, id) pair when the path addresses a
// single item, or ok=false for list, create, and unrecognized paths.
func ExtractItem(path string) (resourceName, id string, ok bool) {
	bits, _, err := splitPath(path)
	if err != nil {
		return "", "", false
	}
	if len(bits) == 2 && isItemID(bits[1]) {
		return bits[0], bits[1], true
	}
	if len(bits) == 3 && isItemID(bits[1]) && bits[2] == "edit" {
		return bits[0], bits[1], true
	}
	return "", "", false
}

// IsItemPath reports whether the path addresses a single item.
func IsItemPath(path string) bool {
	_, _, ok := ExtractItem(path)
	return ok
}

// IsEventsPath reports whether the path addresses an item's event list.
func IsEventsPath(path string) bool {
	bits, _, err := splitPath(path)
	if err != nil {
		return false
	}
	return len(bits) == 3 && isItemID(bits[1]) && bits[2] == "events"
}

// TempID returns a client-generated identifier for tracking a
// not-yet-created item, e.g. while reordering new rows in a list.
func TempID() string {
	return "temp-" + uuid.NewString()
}

func escapeQuery(reason string) string {
	return url.QueryEscape(reason)
}
