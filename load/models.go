package load

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// ID entity or neighbor identifier, the API serves entities as numbers and addresses as strings
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

type CurrencyStats struct {
	Name     string `json:"name" validate:"required"`
	NoBlocks *int64 `json:"no_blocks" validate:"required"`
}

type Stats struct {
	Currencies []CurrencyStats `json:"currencies" validate:"required,dive"`
}

type TxRef struct {
	TxHash string `json:"tx_hash" validate:"required"`
}

type TxValue struct {
	Address []string `json:"address" validate:"required"`
}

type Tx struct {
	Inputs  []TxValue `json:"inputs" validate:"required,dive"`
	Outputs []TxValue `json:"outputs" validate:"required,dive"`
}

type TaxonomyRef struct {
	Taxonomy string `json:"taxonomy" validate:"required"`
}

type AddressRef struct {
	Address string `json:"address" validate:"required"`
}

type EntityRef struct {
	Entity ID `json:"entity" validate:"required"`
}

type AddressList struct {
	Addresses []AddressRef `json:"addresses" validate:"required,dive"`
}

type EntityList struct {
	Entities []EntityRef `json:"entities" validate:"required,dive"`
}

type AddressTxs struct {
	Txs []TxRef `json:"txs" validate:"required,dive"`
}

type Tag struct {
	Label string `json:"label" validate:"required"`
}

type EntityTags struct {
	EntityTags []Tag `json:"entity_tags" validate:"required,dive"`
}

type Neighbor struct {
	ID ID `json:"id" validate:"required"`
}

type Neighbors struct {
	Neighbors []Neighbor `json:"neighbors" validate:"required,dive"`
}

// checkSchema validates a decoded struct, or every struct of a decoded slice
func checkSchema(v interface{}) error {
	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Struct:
		return validate.Struct(rv.Interface())
	case reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			el := reflect.Indirect(rv.Index(i))
			if el.Kind() != reflect.Struct {
				continue
			}
			if err := validate.Struct(el.Interface()); err != nil {
				return errors.Wrapf(err, "item %d", i)
			}
		}
	}
	return nil
}
