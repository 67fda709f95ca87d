package load

// Request labels, one per endpoint template
const (
	StatsLabel                  = "stats"
	BlockLabel                  = "block"
	BlockTxsLabel               = "block_txs"
	TransactionLabel            = "transaction"
	ExchangeRatesLabel          = "exchange_rates"
	TaxonomiesLabel             = "taxonomies"
	ConceptsLabel               = "concepts"
	AddressEntityLabel          = "address_entity"
	NodesAddressesLabel         = "nodes_addresses"
	NodesEntitiesLabel          = "nodes_entities"
	NodeAddressesLabel          = "node_addresses"
	NodeEntitiesLabel           = "node_entities"
	AddressTxsLabel             = "address_txs"
	AddressLinksLabel           = "address_links"
	NodeTagsAddressesLabel      = "node_tags_addresses"
	NodeTagsEntitiesLabel       = "node_tags_entities"
	NodeNeighborsAddressesLabel = "node_neighbors_addresses"
	NodeNeighborsEntitiesLabel  = "node_neighbors_entities"
	EntityAddressLabel          = "entity_address"
)

// Labels all request labels, dashboards get one row per label
func Labels() []string {
	return []string{
		StatsLabel,
		BlockLabel,
		BlockTxsLabel,
		TransactionLabel,
		ExchangeRatesLabel,
		TaxonomiesLabel,
		ConceptsLabel,
		AddressEntityLabel,
		NodesAddressesLabel,
		NodesEntitiesLabel,
		NodeAddressesLabel,
		NodeEntitiesLabel,
		AddressTxsLabel,
		AddressLinksLabel,
		NodeTagsAddressesLabel,
		NodeTagsEntitiesLabel,
		NodeNeighborsAddressesLabel,
		NodeNeighborsEntitiesLabel,
		EntityAddressLabel,
	}
}
