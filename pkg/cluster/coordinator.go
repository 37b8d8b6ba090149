package cluster

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lukapolovic/moviesearch/pkg/api"
	"github.com/lukapolovic/moviesearch/pkg/metrics"
)

// Coordinator fans queries out to every shard group, merges the partial
// results into a global page, and reports cluster readiness from the
// membership table.
type Coordinator struct {
	topology   Topology
	membership *Membership
	client     *ShardClient
	logger     zerolog.Logger
	collector  *metrics.Collector
}

// NewCoordinator creates a coordinator over the given topology.
func NewCoordinator(topology Topology, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		topology:   topology,
		membership: NewMembership(topology.Replicas()),
		client:     NewShardClient(),
		logger:     logger.With().Str("component", "coordinator").Logger(),
	}
}

// SetCollector wires fan-out metrics.
func (c *Coordinator) SetCollector(collector *metrics.Collector) {
	c.collector = collector
}

// Membership returns the replica membership table.
func (c *Coordinator) Membership() *Membership {
	return c.membership
}

// Topology returns the shard topology.
func (c *Coordinator) Topology() Topology {
	return c.topology
}

// NewHeartbeat builds the heartbeat loop feeding this coordinator's
// membership table. The caller owns its lifecycle.
func (c *Coordinator) NewHeartbeat(logger zerolog.Logger) *Heartbeat {
	hb := NewHeartbeat(c.membership, c.topology, logger)
	hb.SetCollector(c.collector)
	return hb
}

// groupResult is one shard group's fan-out outcome.
type groupResult struct {
	shardID  int
	ok       bool
	chosen   string
	attempts []api.Attempt
	response *api.SearchResponse
}

// mergedItem keys a shard hit for global ordering.
type mergedItem struct {
	score float64
	docID int
	item  api.SearchResult
}

// Search fans the query out, merges, and builds the response envelope
// pieces. Every shard is sent the client's page with a page size of
// page*pageSize, so a shard returns its hits starting at
// (page-1)*page*pageSize; the merged hits are then sliced to the requested
// page. Status is "ok" when all groups
// answered, "partial" otherwise — including when every group failed,
// which still yields a 200 with empty results.
// TODO: return 503 when all shard groups fail; revisit with quorum logic.
func (c *Coordinator) Search(ctx context.Context, q string, page, pageSize int, debug bool, requestID string) (string, *api.SearchResponse, *api.Meta) {
	start := time.Now()

	k := page * pageSize
	payload := api.SearchRequest{Q: q, Page: page, PageSize: k, Debug: debug}

	shardIDs := c.topology.ShardIDs()
	results := make([]groupResult, len(shardIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, shardID := range shardIDs {
		i, shardID := i, shardID
		g.Go(func() error {
			results[i] = c.queryShardGroup(gctx, shardID, c.topology[shardID], payload)
			return nil
		})
	}
	g.Wait()

	var (
		shardMeta []api.ShardCall
		merged    []mergedItem
		totalHits int
		failed    int
	)

	for _, r := range results {
		shardMeta = append(shardMeta, api.ShardCall{
			ShardID:       r.shardID,
			OK:            r.ok,
			ChosenReplica: r.chosen,
			Attempts:      r.attempts,
		})

		if !r.ok {
			failed++
			c.logger.Warn().Int("shard_id", r.shardID).Msg("all replicas failed")
			continue
		}

		totalHits += r.response.TotalHits
		for _, item := range r.response.Results {
			score := 0.0
			if item.Score != nil {
				score = *item.Score
			}
			merged = append(merged, mergedItem{score: score, docID: item.DocID, item: item})
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		return merged[i].docID < merged[j].docID
	})

	pageStart := (page - 1) * pageSize
	pageEnd := pageStart + pageSize
	if pageStart > len(merged) {
		pageStart = len(merged)
	}
	if pageEnd > len(merged) {
		pageEnd = len(merged)
	}

	items := make([]api.SearchResult, 0, pageEnd-pageStart)
	for _, m := range merged[pageStart:pageEnd] {
		item := m.item
		if !debug {
			item.Score = nil
			item.Explanations = nil
		}
		items = append(items, item)
	}

	status := "ok"
	if failed > 0 {
		status = "partial"
	}

	if c.collector != nil {
		c.collector.RecordQuery(time.Since(start), failed == 0)
		c.collector.RecordShardGroupFailures(failed)
	}

	response := &api.SearchResponse{
		Query:     q,
		TotalHits: totalHits,
		Page:      page,
		PageSize:  pageSize,
		Results:   items,
	}
	meta := &api.Meta{
		Page:      page,
		PageSize:  pageSize,
		TotalHits: totalHits,
		TookMS:    float64(time.Since(start).Microseconds()) / 1000.0,
		Shards:    shardMeta,
		RequestID: requestID,
	}
	return status, response, meta
}

// queryShardGroup tries a group's replicas sequentially, best status
// first, until one answers 200. Replica order within a status tier is
// the configured order.
func (c *Coordinator) queryShardGroup(ctx context.Context, shardID int, replicas []string, payload api.SearchRequest) groupResult {
	result := groupResult{shardID: shardID}

	ordered := make([]string, len(replicas))
	copy(ordered, replicas)
	sort.SliceStable(ordered, func(i, j int) bool {
		return c.membership.StatusOf(ordered[i]).priority() < c.membership.StatusOf(ordered[j]).priority()
	})

	for _, replica := range ordered {
		replicaStatus := c.membership.StatusOf(replica)

		t0 := time.Now()
		resp, status, err := c.client.Search(ctx, replica, payload)
		tookMS := float64(time.Since(t0).Microseconds()) / 1000.0

		if c.collector != nil {
			c.collector.RecordFanoutAttempt()
		}

		attempt := api.Attempt{
			Replica:       replica,
			TookMS:        tookMS,
			ReplicaStatus: string(replicaStatus),
		}

		if err != nil {
			attempt.Error = errName(err)
			result.attempts = append(result.attempts, attempt)
			if c.collector != nil {
				c.collector.RecordFanoutFailover()
			}
			continue
		}

		attempt.OK = status == 200
		attempt.StatusCode = status
		result.attempts = append(result.attempts, attempt)

		if status == 200 {
			result.ok = true
			result.chosen = replica
			result.response = resp
			return result
		}

		if c.collector != nil {
			c.collector.RecordFanoutFailover()
		}
	}

	return result
}

func errName(err error) string {
	if te, ok := err.(*TransportError); ok {
		return te.Kind
	}
	return "transport_error"
}

// Ready reports whether every shard group has at least one replica that
// is ready and not DOWN, with a detail line per unready group.
func (c *Coordinator) Ready() (bool, []string) {
	var notReady []string

	for _, shardID := range c.topology.ShardIDs() {
		anyReady := false
		var details []string

		for _, replica := range c.topology[shardID] {
			state, ok := c.membership.Snapshot(replica)
			if !ok {
				details = append(details, replica+" status=unknown ready=false")
				continue
			}
			details = append(details, fmt.Sprintf("%s status=%s ready=%t failures=%d",
				replica, state.Status, state.Ready, state.ConsecutiveFailures))

			if state.Ready && state.Status != StatusDown {
				anyReady = true
			}
		}

		if !anyReady {
			notReady = append(notReady,
				"shard "+strconv.Itoa(shardID)+" has no ready replicas: "+fmt.Sprint(details))
		}
	}

	return len(notReady) == 0, notReady
}
