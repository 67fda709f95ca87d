package mockapi

import (
	"fmt"
	"hash/fnv"
)

const (
	txsPerBlock      = 3
	pageSize         = 10
	neighborsPerNode = 4
)

var taxonomies = []string{"entity", "abuse"}

func hash(parts ...interface{}) uint32 {
	h := fnv.New32a()
	for _, p := range parts {
		fmt.Fprint(h, p, "/")
	}
	return h.Sum32()
}

func addressID(n uint32) string {
	return fmt.Sprintf("1Mock%010d", n%100000)
}

func entityID(n uint32) int64 {
	return int64(n%50000) + 1
}

func txHash(n uint32) string {
	return fmt.Sprintf("%064x", uint64(n)*2654435761)
}

// entityOf stable entity of an address
func entityOf(address string) int64 {
	return entityID(hash("entity", address))
}

type currencyStats struct {
	Name     string `json:"name"`
	NoBlocks int64  `json:"no_blocks"`
	NoTxs    int64  `json:"no_txs"`
}

type stats struct {
	Currencies []currencyStats `json:"currencies"`
	Version    string          `json:"version"`
}

type block struct {
	Height    int64  `json:"height"`
	BlockHash string `json:"block_hash"`
	NoTxs     int    `json:"no_txs"`
	Timestamp int64  `json:"timestamp"`
}

type txRef struct {
	TxHash string `json:"tx_hash"`
	Height int64  `json:"height,omitempty"`
}

type txValue struct {
	Address []string `json:"address"`
	Value   int64    `json:"value"`
}

type tx struct {
	TxHash  string    `json:"tx_hash"`
	Height  int64     `json:"height"`
	Inputs  []txValue `json:"inputs"`
	Outputs []txValue `json:"outputs"`
}

type rate struct {
	Code  string  `json:"code"`
	Value float64 `json:"value"`
}

type rates struct {
	Height int64  `json:"height"`
	Rates  []rate `json:"rates"`
}

type taxonomy struct {
	Taxonomy string `json:"taxonomy"`
	URI      string `json:"uri"`
}

type concept struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Taxonomy string `json:"taxonomy"`
}

type addressRef struct {
	Address string `json:"address"`
}

type entityRef struct {
	Entity int64 `json:"entity"`
}

type addressNode struct {
	Address string `json:"address"`
	Entity  int64  `json:"entity"`
	Balance int64  `json:"balance"`
}

type entityNode struct {
	Entity      int64 `json:"entity"`
	NoAddresses int   `json:"no_addresses"`
}

type tag struct {
	Label    string `json:"label"`
	Category string `json:"category"`
	Address  string `json:"address,omitempty"`
}

type entityTags struct {
	Entity      int64 `json:"entity"`
	EntityTags  []tag `json:"entity_tags"`
	AddressTags []tag `json:"address_tags"`
}

type neighbor struct {
	ID       interface{} `json:"id"`
	NodeType string      `json:"node_type"`
	NoTxs    int         `json:"no_txs"`
}

type neighbors struct {
	Neighbors []neighbor `json:"neighbors"`
}

type addressList struct {
	Addresses []addressRef `json:"addresses"`
	NextPage  string       `json:"next_page,omitempty"`
}

type entityList struct {
	Entities []entityRef `json:"entities"`
	NextPage string      `json:"next_page,omitempty"`
}

type addressTxs struct {
	Txs []txRef `json:"txs"`
}

type apiError struct {
	Message string `json:"message"`
}
