package window

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/anselm/internal/chat"
)

// maxPartitionWorkers bounds concurrent per-chat grouping passes.
const maxPartitionWorkers = 8

// GroupPartitioned splits raw by chat id and groups every partition
// independently and concurrently. Groups never span chats. Output is ordered
// by each chat's first appearance in raw, then by group order within the chat.
// Date errors keep their original stream indices.
//
// Cancellation is checked only between partitions; a partition that has
// started always runs to completion.
func (g *Grouper) GroupPartitioned(ctx context.Context, raw []chat.RawMessage) (Result, error) {
	var order []string
	parts := make(map[string][]int)
	for i, r := range raw {
		key := string(r.ChatID)
		if _, ok := parts[key]; !ok {
			order = append(order, key)
		}
		parts[key] = append(parts[key], i)
	}

	results := make([]Result, len(order))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxPartitionWorkers)
	for i, key := range order {
		i := i
		idx := parts[key]
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sub := make([]chat.RawMessage, len(idx))
			for j, orig := range idx {
				sub[j] = raw[orig]
			}
			res := g.Group(sub)
			remap(&res, idx)
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}

	var merged Result
	for _, res := range results {
		merged.Groups = append(merged.Groups, res.Groups...)
		merged.DateErrors = append(merged.DateErrors, res.DateErrors...)
		merged.DroppedEmpty += res.DroppedEmpty
		merged.Messages += res.Messages
	}
	return merged, nil
}

// remap rewrites partition-local indices to positions in the full stream.
func remap(res *Result, idx []int) {
	for gi := range res.Groups {
		for mi := range res.Groups[gi].Messages {
			m := &res.Groups[gi].Messages[mi]
			m.Index = idx[m.Index]
		}
	}
	for di := range res.DateErrors {
		res.DateErrors[di].Index = idx[res.DateErrors[di].Index]
	}
}
