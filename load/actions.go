package load

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Outcome of one action
type Outcome int

const (
	// Completed request made and its response folded into the state
	Completed Outcome = iota
	// Skipped no request made, the state lacks data the action needs
	Skipped
	// Failed request made, transport, status, decode or schema failure
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result of one action
type Result struct {
	Outcome  Outcome
	Label    string
	Response Response
	Err      error
}

func skip(label string) Result {
	return Result{Outcome: Skipped, Label: label}
}

// Action one request recipe, reads and updates the walker state
type Action struct {
	Name string
	Run  func(ctx context.Context, w *Walker) Result
}

// DefaultActions all actions in stable order
func DefaultActions() []Action {
	return []Action{
		{Name: "stats", Run: statsAction},
		{Name: "block", Run: blockAction},
		{Name: "block_txs", Run: blockTxsAction},
		{Name: "transaction", Run: transactionAction},
		{Name: "exchange_rates", Run: exchangeRatesAction},
		{Name: "taxonomies", Run: taxonomiesAction},
		{Name: "concepts", Run: conceptsAction},
		{Name: "address_entity", Run: addressEntityAction},
		{Name: "nodes", Run: nodesAction},
		{Name: "node", Run: nodeAction},
		{Name: "address_txs", Run: addressTxsAction},
		{Name: "address_links", Run: addressLinksAction},
		{Name: "node_tags", Run: nodeTagsAction},
		{Name: "node_neighbors", Run: nodeNeighborsAction},
		{Name: "entity_address", Run: entityAddressAction},
	}
}

// SelectActions subset of DefaultActions by comma separated names, all actions when names is empty
func SelectActions(names string) ([]Action, error) {
	all := DefaultActions()
	if strings.TrimSpace(names) == "" {
		return all, nil
	}
	byName := make(map[string]Action, len(all))
	for _, a := range all {
		byName[a.Name] = a
	}
	selected := make([]Action, 0)
	for _, n := range strings.Split(names, ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		a, ok := byName[n]
		if !ok {
			return nil, errors.Errorf("unknown action: %s", n)
		}
		selected = append(selected, a)
	}
	if len(selected) == 0 {
		return nil, errors.New("no actions selected")
	}
	return selected, nil
}

func seg(s string) string {
	return url.PathEscape(s)
}

func (w *Walker) currencyPath(format string, args ...interface{}) string {
	return "/" + seg(w.currency) + fmt.Sprintf(format, args...)
}

func statsAction(ctx context.Context, w *Walker) Result {
	var stats Stats
	res := w.fetch(ctx, StatsLabel, "/stats", &stats)
	if res.Outcome != Completed {
		return res
	}
	for _, c := range stats.Currencies {
		if c.Name == w.currency {
			h := *c.NoBlocks - 1
			if h < 0 {
				h = 0
			}
			w.State.MaxBlockHeight = h
			break
		}
	}
	return res
}

func blockAction(ctx context.Context, w *Walker) Result {
	if w.State.MaxBlockHeight == 0 {
		return skip(BlockLabel)
	}
	var block interface{}
	return w.fetch(ctx, BlockLabel, w.currencyPath("/blocks/%d", w.height()), &block)
}

func blockTxsAction(ctx context.Context, w *Walker) Result {
	if w.State.MaxBlockHeight == 0 {
		return skip(BlockTxsLabel)
	}
	var txs []TxRef
	res := w.fetch(ctx, BlockTxsLabel, w.currencyPath("/blocks/%d/txs", w.height()), &txs)
	if res.Outcome != Completed {
		return res
	}
	for _, tx := range txs {
		w.State.Transactions.Append(tx.TxHash)
	}
	return res
}

func transactionAction(ctx context.Context, w *Walker) Result {
	if w.State.Transactions.Empty() {
		return skip(TransactionLabel)
	}
	var tx Tx
	res := w.fetch(ctx, TransactionLabel, w.currencyPath("/txs/%s", seg(w.State.Transactions.Pick(w.rnd))), &tx)
	if res.Outcome != Completed {
		return res
	}
	for _, out := range tx.Outputs {
		w.State.Addresses.Append(out.Address...)
	}
	for _, in := range tx.Inputs {
		w.State.Addresses.Append(in.Address...)
	}
	return res
}

func exchangeRatesAction(ctx context.Context, w *Walker) Result {
	if w.State.MaxBlockHeight == 0 {
		return skip(ExchangeRatesLabel)
	}
	var rates interface{}
	return w.fetch(ctx, ExchangeRatesLabel, w.currencyPath("/rates/%d", w.height()), &rates)
}

func taxonomiesAction(ctx context.Context, w *Walker) Result {
	var taxonomies []TaxonomyRef
	res := w.fetch(ctx, TaxonomiesLabel, "/tags/taxonomies", &taxonomies)
	if res.Outcome != Completed {
		return res
	}
	names := make([]string, 0, len(taxonomies))
	for _, t := range taxonomies {
		names = append(names, t.Taxonomy)
	}
	w.State.Taxonomies.Replace(names...)
	return res
}

func conceptsAction(ctx context.Context, w *Walker) Result {
	if w.State.Taxonomies.Empty() {
		return skip(ConceptsLabel)
	}
	var concepts interface{}
	path := fmt.Sprintf("/tags/taxonomies/%s/concepts", seg(w.State.Taxonomies.Pick(w.rnd)))
	return w.fetch(ctx, ConceptsLabel, path, &concepts)
}

func addressEntityAction(ctx context.Context, w *Walker) Result {
	if w.State.Addresses.Empty() {
		return skip(AddressEntityLabel)
	}
	var e EntityRef
	res := w.fetch(ctx, AddressEntityLabel, w.currencyPath("/addresses/%s/entity", seg(w.State.Addresses.Pick(w.rnd))), &e)
	if res.Outcome != Completed {
		return res
	}
	w.State.Entities.Append(e.Entity.String())
	return res
}

func nodesAction(ctx context.Context, w *Walker) Result {
	switch c := w.category(); c {
	case Address:
		var list AddressList
		res := w.fetch(ctx, NodesAddressesLabel, w.currencyPath("/%s", c.Plural()), &list)
		if res.Outcome != Completed {
			return res
		}
		for _, a := range list.Addresses {
			w.State.Addresses.Append(a.Address)
		}
		return res
	default:
		var list EntityList
		res := w.fetch(ctx, NodesEntitiesLabel, w.currencyPath("/%s", c.Plural()), &list)
		if res.Outcome != Completed {
			return res
		}
		for _, e := range list.Entities {
			w.State.Entities.Append(e.Entity.String())
		}
		return res
	}
}

func nodeAction(ctx context.Context, w *Walker) Result {
	c := w.category()
	label := nodeLabel(c, NodeAddressesLabel, NodeEntitiesLabel)
	pool := w.State.Pool(c)
	if pool.Empty() {
		return skip(label)
	}
	path := w.currencyPath("/%s/%s", c.Plural(), seg(pool.Pick(w.rnd)))
	if c == Entity {
		var node interface{}
		return w.fetch(ctx, label, path, &node)
	}
	var e EntityRef
	res := w.fetch(ctx, label, path, &e)
	if res.Outcome != Completed {
		return res
	}
	w.State.Entities.Append(e.Entity.String())
	return res
}

func addressTxsAction(ctx context.Context, w *Walker) Result {
	if w.State.Addresses.Empty() {
		return skip(AddressTxsLabel)
	}
	var txs AddressTxs
	res := w.fetch(ctx, AddressTxsLabel, w.currencyPath("/addresses/%s/txs", seg(w.State.Addresses.Pick(w.rnd))), &txs)
	if res.Outcome != Completed {
		return res
	}
	for _, tx := range txs.Txs {
		w.State.Transactions.Append(tx.TxHash)
	}
	return res
}

func addressLinksAction(ctx context.Context, w *Walker) Result {
	if w.State.Addresses.Empty() {
		return skip(AddressLinksLabel)
	}
	node := w.State.Addresses.Pick(w.rnd)
	neighbor := w.State.Addresses.Pick(w.rnd)
	var links []TxRef
	path := w.currencyPath("/addresses/%s/links?neighbor=%s", seg(node), url.QueryEscape(neighbor))
	res := w.fetch(ctx, AddressLinksLabel, path, &links)
	if res.Outcome != Completed {
		return res
	}
	for _, tx := range links {
		w.State.Transactions.Append(tx.TxHash)
	}
	return res
}

func nodeTagsAction(ctx context.Context, w *Walker) Result {
	c := w.category()
	label := nodeLabel(c, NodeTagsAddressesLabel, NodeTagsEntitiesLabel)
	pool := w.State.Pool(c)
	if pool.Empty() {
		return skip(label)
	}
	path := w.currencyPath("/%s/%s/tags", c.Plural(), seg(pool.Pick(w.rnd)))
	var tags []Tag
	var res Result
	if c == Entity {
		var et EntityTags
		if res = w.fetch(ctx, label, path, &et); res.Outcome != Completed {
			return res
		}
		tags = et.EntityTags
	} else if res = w.fetch(ctx, label, path, &tags); res.Outcome != Completed {
		return res
	}
	for _, t := range tags {
		w.State.TagPool(c).Append(t.Label)
	}
	return res
}

func nodeNeighborsAction(ctx context.Context, w *Walker) Result {
	c := w.category()
	label := nodeLabel(c, NodeNeighborsAddressesLabel, NodeNeighborsEntitiesLabel)
	pool := w.State.Pool(c)
	if pool.Empty() {
		return skip(label)
	}
	path := w.currencyPath("/%s/%s/neighbors?direction=%s", c.Plural(), seg(pool.Pick(w.rnd)), w.direction())
	var neighbors Neighbors
	res := w.fetch(ctx, label, path, &neighbors)
	if res.Outcome != Completed {
		return res
	}
	for _, n := range neighbors.Neighbors {
		pool.Append(n.ID.String())
	}
	return res
}

func entityAddressAction(ctx context.Context, w *Walker) Result {
	if w.State.Entities.Empty() {
		return skip(EntityAddressLabel)
	}
	var list AddressList
	res := w.fetch(ctx, EntityAddressLabel, w.currencyPath("/entities/%s/addresses", seg(w.State.Entities.Pick(w.rnd))), &list)
	if res.Outcome != Completed {
		return res
	}
	for _, a := range list.Addresses {
		w.State.Addresses.Append(a.Address)
	}
	return res
}

func nodeLabel(c Category, address, entity string) string {
	if c == Entity {
		return entity
	}
	return address
}
