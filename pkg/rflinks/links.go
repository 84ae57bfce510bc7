// Package rflinks encodes and decodes RedForester web URLs for maps, nodes
// and uploaded files.
package rflinks

import (
	"fmt"
	"net/url"
	"regexp"
)

const webBaseURL = "https://app.redforester.com"

var (
	mapIDRe  = regexp.MustCompile(`mapid=([\w-]+)`)
	nodeIDRe = regexp.MustCompile(`nodeid=([\w-]+)`)
)

// NodeURL returns the web URL opening the given node on its map.
func NodeURL(mapID string, nodeID string) string {
	return fmt.Sprintf("%s/mindmap?mapid=%s&nodeid=%s", webBaseURL, mapID, nodeID)
}

// FileURL returns the download URL of an uploaded file.
func FileURL(fileID string, fileName string) string {
	return fmt.Sprintf("%s/api/files/%s?filename=%s", webBaseURL, fileID, url.QueryEscape(fileName))
}

// ParseNodeURL extracts the map and node identifiers from a node web URL.
//
// Malformed input yields ok=false with empty identifiers, never an error.
func ParseNodeURL(raw string) (mapID string, nodeID string, ok bool) {
	mapMatch := mapIDRe.FindStringSubmatch(raw)
	nodeMatch := nodeIDRe.FindStringSubmatch(raw)
	if mapMatch == nil || nodeMatch == nil {
		return "", "", false
	}

	return mapMatch[1], nodeMatch[1], true
}
