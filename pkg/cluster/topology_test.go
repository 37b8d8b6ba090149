package cluster

import (
	"reflect"
	"testing"
)

func TestParseShardGroups(t *testing.T) {
	topology, err := ParseShardGroups("0=http://h1:8001/,http://h3:8001; 1=http://h2:8001")
	if err != nil {
		t.Fatalf("ParseShardGroups() error: %v", err)
	}

	want := Topology{
		0: {"http://h1:8001", "http://h3:8001"},
		1: {"http://h2:8001"},
	}
	if !reflect.DeepEqual(topology, want) {
		t.Errorf("topology = %v, want %v", topology, want)
	}
}

func TestParseShardGroupsErrors(t *testing.T) {
	tests := []string{
		"",
		"0http://h1:8001",
		"x=http://h1:8001",
		"-1=http://h1:8001",
		"0=",
	}
	for _, raw := range tests {
		if _, err := ParseShardGroups(raw); err == nil {
			t.Errorf("ParseShardGroups(%q) succeeded, want error", raw)
		}
	}
}

func TestParseShardURLs(t *testing.T) {
	topology, err := ParseShardURLs("http://h1:8001/, http://h2:8001")
	if err != nil {
		t.Fatalf("ParseShardURLs() error: %v", err)
	}

	want := Topology{
		0: {"http://h1:8001"},
		1: {"http://h2:8001"},
	}
	if !reflect.DeepEqual(topology, want) {
		t.Errorf("topology = %v, want %v", topology, want)
	}
}

func TestParseTopologyFallback(t *testing.T) {
	topology, err := ParseTopology("", "http://h1:8001")
	if err != nil {
		t.Fatalf("ParseTopology() error: %v", err)
	}
	if len(topology) != 1 {
		t.Errorf("topology = %v, want one shard from fallback", topology)
	}

	topology, err = ParseTopology("0=http://h1:8001,http://h2:8001", "ignored")
	if err != nil {
		t.Fatalf("ParseTopology() error: %v", err)
	}
	if len(topology[0]) != 2 {
		t.Errorf("topology = %v, want two replicas in group 0", topology)
	}
}

func TestTopologyReplicas(t *testing.T) {
	topology := Topology{
		1: {"http://b", "http://shared"},
		0: {"http://a", "http://shared"},
	}

	got := topology.Replicas()
	want := []string{"http://a", "http://shared", "http://b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Replicas() = %v, want %v", got, want)
	}

	if ids := topology.ShardIDs(); !reflect.DeepEqual(ids, []int{0, 1}) {
		t.Errorf("ShardIDs() = %v, want [0 1]", ids)
	}
}
