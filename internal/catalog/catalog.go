// Package catalog loads customers, branches and products from JSON seed
// files into the catalog repositories.
package catalog

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/sales-service/db"
	"github.com/xenking/sales-service/internal/domain/branch"
	"github.com/xenking/sales-service/internal/domain/customer"
	"github.com/xenking/sales-service/internal/domain/money"
	"github.com/xenking/sales-service/internal/domain/product"
)

// Catalog is the reference data sales are built from.
type Catalog struct {
	Customers []customer.Customer
	Branches  []branch.Branch
	Products  []product.Product
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Decode(db.Catalog)
}

// ReadFile reads a catalog file. Files ending in .gz are gunzipped.
func ReadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return Decode(data)
}

// Decode parses a catalog document:
//
//	{"customers": [...], "branches": [...], "products": [...]}
func Decode(data []byte) (*Catalog, error) {
	var c Catalog
	err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "customers":
			return d.Arr(func(d *jx.Decoder) error {
				v, err := decodeCustomer(d)
				c.Customers = append(c.Customers, v)
				return err
			})
		case "branches":
			return d.Arr(func(d *jx.Decoder) error {
				v, err := decodeBranch(d)
				c.Branches = append(c.Branches, v)
				return err
			})
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				v, err := decodeProduct(d)
				c.Products = append(c.Products, v)
				return err
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return &c, nil
}

// CustomerWriter stores customers.
type CustomerWriter interface {
	Upsert(ctx context.Context, customers ...customer.Customer) error
}

// BranchWriter stores branches.
type BranchWriter interface {
	Upsert(ctx context.Context, branches ...branch.Branch) error
}

// ProductWriter stores products.
type ProductWriter interface {
	Upsert(ctx context.Context, products ...product.Product) error
}

// Stores are the destinations of Load.
type Stores struct {
	Customers CustomerWriter
	Branches  BranchWriter
	Products  ProductWriter
}

// Load upserts the catalog into s, one entity kind per goroutine.
func (c *Catalog) Load(ctx context.Context, s Stores) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Customers.Upsert(ctx, c.Customers...); err != nil {
			return errors.Wrap(err, "upsert customers")
		}
		return nil
	})
	g.Go(func() error {
		if err := s.Branches.Upsert(ctx, c.Branches...); err != nil {
			return errors.Wrap(err, "upsert branches")
		}
		return nil
	})
	g.Go(func() error {
		if err := s.Products.Upsert(ctx, c.Products...); err != nil {
			return errors.Wrap(err, "upsert products")
		}
		return nil
	})
	return g.Wait()
}

func decodeCustomer(d *jx.Decoder) (customer.Customer, error) {
	var c customer.Customer
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			c.ID, err = decodeID(d)
		case "name":
			c.Name, err = d.Str()
		case "email":
			c.Email, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return c, errors.Wrap(err, "customer")
	}
	return c, nil
}

func decodeBranch(d *jx.Decoder) (branch.Branch, error) {
	var b branch.Branch
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			b.ID, err = decodeID(d)
		case "name":
			b.Name, err = d.Str()
		case "phone":
			b.Phone, err = d.Str()
		case "status":
			var s string
			s, err = d.Str()
			b.Status = branch.Status(s)
		case "address":
			b.Address, err = decodeAddress(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return b, errors.Wrap(err, "branch")
	}
	if b.Status == "" {
		b.Status = branch.StatusActive
	}
	return b, nil
}

func decodeAddress(d *jx.Decoder) (branch.Address, error) {
	var a branch.Address
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var dst *string
		switch string(key) {
		case "street":
			dst = &a.Street
		case "city":
			dst = &a.City
		case "state":
			dst = &a.State
		case "zip_code":
			dst = &a.ZipCode
		case "country":
			dst = &a.Country
		default:
			return d.Skip()
		}
		v, err := d.Str()
		*dst = v
		return err
	})
	return a, err
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var (
		p        product.Product
		price    string
		currency string
	)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			p.ID, err = decodeID(d)
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			price, err = d.Str()
		case "currency":
			currency, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return p, errors.Wrap(err, "product")
	}

	amount, err := decimal.NewFromString(price)
	if err != nil {
		return p, errors.Wrapf(err, "product %s price", p.ID)
	}
	if p.Price, err = money.New(amount, currency); err != nil {
		return p, errors.Wrapf(err, "product %s price", p.ID)
	}
	return p, nil
}

func decodeID(d *jx.Decoder) (uuid.UUID, error) {
	s, err := d.Str()
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, "id %q", s)
	}
	return id, nil
}
