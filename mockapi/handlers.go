package mockapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Route templates as registered in the router, usable with Stub and Hits
const (
	StatsRoute            = "/stats"
	TaxonomiesRoute       = "/tags/taxonomies"
	ConceptsRoute         = "/tags/taxonomies/:taxonomy/concepts"
	BlockRoute            = "/:currency/blocks/:height"
	BlockTxsRoute         = "/:currency/blocks/:height/txs"
	TxRoute               = "/:currency/txs/:tx"
	RatesRoute            = "/:currency/rates/:height"
	AddressesRoute        = "/:currency/addresses"
	EntitiesRoute         = "/:currency/entities"
	AddressRoute          = "/:currency/addresses/:address"
	AddressEntityRoute    = "/:currency/addresses/:address/entity"
	AddressTxsRoute       = "/:currency/addresses/:address/txs"
	AddressLinksRoute     = "/:currency/addresses/:address/links"
	AddressTagsRoute      = "/:currency/addresses/:address/tags"
	AddressNeighborsRoute = "/:currency/addresses/:address/neighbors"
	EntityRoute           = "/:currency/entities/:entity"
	EntityTagsRoute       = "/:currency/entities/:entity/tags"
	EntityNeighborsRoute  = "/:currency/entities/:entity/neighbors"
	EntityAddressesRoute  = "/:currency/entities/:entity/addresses"
)

func (s *Server) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, stats{
		Currencies: []currencyStats{
			{Name: s.cfg.Currency, NoBlocks: s.cfg.NoBlocks, NoTxs: s.cfg.NoBlocks * txsPerBlock},
		},
		Version: "mock",
	})
}

func (s *Server) taxonomies(c echo.Context) error {
	res := make([]taxonomy, 0, len(taxonomies))
	for _, t := range taxonomies {
		res = append(res, taxonomy{Taxonomy: t, URI: "https://example.org/" + t})
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) concepts(c echo.Context) error {
	t := c.Param("taxonomy")
	known := false
	for _, name := range taxonomies {
		known = known || name == t
	}
	if !known {
		return notFound(c, "unknown taxonomy")
	}
	return c.JSON(http.StatusOK, []concept{
		{ID: "exchange", Label: "Exchange", Taxonomy: t},
		{ID: "miner", Label: "Miner", Taxonomy: t},
	})
}

func (s *Server) block(c echo.Context) error {
	h, ok := s.heightParam(c)
	if !ok {
		return notFound(c, "block not found")
	}
	return c.JSON(http.StatusOK, block{
		Height:    h,
		BlockHash: txHash(hash("block", h)),
		NoTxs:     txsPerBlock,
		Timestamp: 1231006505 + h*600,
	})
}

func blockTxHashes(h int64) []string {
	res := make([]string, 0, txsPerBlock)
	for i := 0; i < txsPerBlock; i++ {
		res = append(res, txHash(hash("tx", h, i)))
	}
	return res
}

func (s *Server) blockTxs(c echo.Context) error {
	h, ok := s.heightParam(c)
	if !ok {
		return notFound(c, "block not found")
	}
	res := make([]txRef, 0, txsPerBlock)
	for _, tx := range blockTxHashes(h) {
		res = append(res, txRef{TxHash: tx, Height: h})
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) tx(c echo.Context) error {
	id := c.Param("tx")
	n := hash("txdata", id)
	return c.JSON(http.StatusOK, tx{
		TxHash: id,
		Height: int64(n) % s.cfg.NoBlocks,
		Inputs: []txValue{
			{Address: []string{addressID(hash("in", id))}, Value: int64(n % 100000)},
		},
		Outputs: []txValue{
			{Address: []string{addressID(hash("out", id, 0))}, Value: int64(n % 70000)},
			{Address: []string{addressID(hash("out", id, 1))}, Value: int64(n % 30000)},
		},
	})
}

func (s *Server) rates(c echo.Context) error {
	h, ok := s.heightParam(c)
	if !ok {
		return notFound(c, "block not found")
	}
	base := float64(hash("rate", h)%10000) / 100
	return c.JSON(http.StatusOK, rates{
		Height: h,
		Rates:  []rate{{Code: "eur", Value: base}, {Code: "usd", Value: base * 1.1}},
	})
}

func (s *Server) addresses(c echo.Context) error {
	res := addressList{NextPage: "2"}
	for i := 0; i < pageSize; i++ {
		res.Addresses = append(res.Addresses, addressRef{Address: addressID(hash("page", i))})
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) entities(c echo.Context) error {
	res := entityList{NextPage: "2"}
	for i := 0; i < pageSize; i++ {
		res.Entities = append(res.Entities, entityRef{Entity: entityID(hash("page", i))})
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) address(c echo.Context) error {
	a := c.Param("address")
	return c.JSON(http.StatusOK, addressNode{
		Address: a,
		Entity:  entityOf(a),
		Balance: int64(hash("balance", a) % 1000000),
	})
}

func (s *Server) addressEntity(c echo.Context) error {
	a := c.Param("address")
	e := entityOf(a)
	return c.JSON(http.StatusOK, entityNode{Entity: e, NoAddresses: int(hash("size", e)%20) + 1})
}

func (s *Server) addressTxs(c echo.Context) error {
	a := c.Param("address")
	res := addressTxs{}
	for i := 0; i < pageSize; i++ {
		h := int64(hash("atx", a, i)) % s.cfg.NoBlocks
		res.Txs = append(res.Txs, txRef{TxHash: blockTxHashes(h)[i%txsPerBlock], Height: h})
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) addressLinks(c echo.Context) error {
	a := c.Param("address")
	neighbor := c.QueryParam("neighbor")
	if neighbor == "" {
		return badRequest(c, "neighbor is required")
	}
	res := []txRef{{TxHash: txHash(hash("link", a, neighbor))}}
	return c.JSON(http.StatusOK, res)
}

func tagsFor(id interface{}) []tag {
	n := hash("tags", id)
	res := make([]tag, 0)
	for i := uint32(0); i < n%3; i++ {
		res = append(res, tag{Label: fmt.Sprintf("tag-%d", hash("label", id, i)%1000), Category: taxonomies[i%2]})
	}
	return res
}

func (s *Server) addressTags(c echo.Context) error {
	a := c.Param("address")
	res := tagsFor(a)
	for i := range res {
		res[i].Address = a
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) addressNeighbors(c echo.Context) error {
	a := c.Param("address")
	if !validDirection(c) {
		return badRequest(c, "direction must be in or out")
	}
	res := neighbors{Neighbors: make([]neighbor, 0, neighborsPerNode)}
	for i := 0; i < neighborsPerNode; i++ {
		res.Neighbors = append(res.Neighbors, neighbor{
			ID:       addressID(hash("neighbor", a, c.QueryParam("direction"), i)),
			NodeType: "address",
			NoTxs:    i + 1,
		})
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) entity(c echo.Context) error {
	e, ok := entityParam(c)
	if !ok {
		return badRequest(c, "entity must be a positive number")
	}
	return c.JSON(http.StatusOK, entityNode{Entity: e, NoAddresses: int(hash("size", e)%20) + 1})
}

func (s *Server) entityTags(c echo.Context) error {
	e, ok := entityParam(c)
	if !ok {
		return badRequest(c, "entity must be a positive number")
	}
	return c.JSON(http.StatusOK, entityTags{Entity: e, EntityTags: tagsFor(e), AddressTags: []tag{}})
}

func (s *Server) entityNeighbors(c echo.Context) error {
	e, ok := entityParam(c)
	if !ok {
		return badRequest(c, "entity must be a positive number")
	}
	if !validDirection(c) {
		return badRequest(c, "direction must be in or out")
	}
	res := neighbors{Neighbors: make([]neighbor, 0, neighborsPerNode)}
	for i := 0; i < neighborsPerNode; i++ {
		res.Neighbors = append(res.Neighbors, neighbor{
			ID:       entityID(hash("neighbor", e, c.QueryParam("direction"), i)),
			NodeType: "entity",
			NoTxs:    i + 1,
		})
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) entityAddresses(c echo.Context) error {
	e, ok := entityParam(c)
	if !ok {
		return badRequest(c, "entity must be a positive number")
	}
	res := addressList{}
	size := int(hash("size", e)%20) + 1
	for i := 0; i < size && i < pageSize; i++ {
		res.Addresses = append(res.Addresses, addressRef{Address: addressID(hash("member", e, i))})
	}
	return c.JSON(http.StatusOK, res)
}

func validDirection(c echo.Context) bool {
	d := c.QueryParam("direction")
	return d == "in" || d == "out"
}
