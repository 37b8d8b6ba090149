// Package cluster implements the coordinator side of the system: shard
// topology, replica membership fed by a heartbeat loop, and the query
// fan-out with result merging.
package cluster

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Topology maps shard ids to their ordered replica base URLs. Replica
// order is the configured failover order within a status tier.
type Topology map[int][]string

// ParseShardGroups parses the authoritative topology string:
//
//	"0=http://h1:8001,http://h3:8001;1=http://h2:8001"
//
// Trailing slashes on URLs are stripped. Empty segments are ignored.
func ParseShardGroups(raw string) (Topology, error) {
	groups := make(Topology)

	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		left, right, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("invalid shard group %q: missing '='", part)
		}

		shardID, err := strconv.Atoi(strings.TrimSpace(left))
		if err != nil {
			return nil, fmt.Errorf("invalid shard id %q: %w", left, err)
		}
		if shardID < 0 {
			return nil, fmt.Errorf("invalid shard id %d: must be non-negative", shardID)
		}

		urls := splitURLs(right)
		if len(urls) == 0 {
			return nil, fmt.Errorf("shard group %d has no replicas", shardID)
		}
		groups[shardID] = urls
	}

	if len(groups) == 0 {
		return nil, fmt.Errorf("no shard groups configured")
	}
	return groups, nil
}

// ParseShardURLs parses the fallback single-replica form: a comma list of
// URLs, shard id assigned by list position.
func ParseShardURLs(raw string) (Topology, error) {
	urls := splitURLs(raw)
	if len(urls) == 0 {
		return nil, fmt.Errorf("no shard urls configured")
	}

	groups := make(Topology, len(urls))
	for i, u := range urls {
		groups[i] = []string{u}
	}
	return groups, nil
}

// ParseTopology prefers the SHARD_GROUPS form and falls back to the
// SHARD_URLS form when groups is empty.
func ParseTopology(groups, urls string) (Topology, error) {
	if strings.TrimSpace(groups) != "" {
		return ParseShardGroups(groups)
	}
	return ParseShardURLs(urls)
}

// Replicas returns every replica base URL across all groups, without
// duplicates, in shard order.
func (t Topology) Replicas() []string {
	seen := make(map[string]bool)
	var all []string
	for _, shardID := range t.ShardIDs() {
		for _, base := range t[shardID] {
			if seen[base] {
				continue
			}
			seen[base] = true
			all = append(all, base)
		}
	}
	return all
}

// ShardIDs returns the shard ids in ascending order.
func (t Topology) ShardIDs() []int {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func splitURLs(raw string) []string {
	var urls []string
	for _, u := range strings.Split(raw, ",") {
		u = strings.TrimSpace(u)
		u = strings.TrimRight(u, "/")
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
