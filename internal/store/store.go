package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mebleko/backend-oferta/internal/obs"
	"github.com/mebleko/backend-oferta/internal/quote"
)

// ErrQuoteNotFound indicates the quote id has no row in the store.
var ErrQuoteNotFound = errors.New("quote not found")

// Store loads quote snapshots from Postgres and persists individual edits.
// Monetary columns are read as text and parsed into decimals to avoid float
// round trips.
type Store struct {
	Pool   *pgxpool.Pool
	Cache  *SnapshotCache
	Logger zerolog.Logger
}

// LoadQuoteSnapshot fetches the full quote: products, variants, finishing,
// costs, client and the order configuration catalog. A cached snapshot is
// served when present; cache errors only log, they never fail the load.
func (s *Store) LoadQuoteSnapshot(ctx context.Context, quoteID int64) (*quote.Quote, error) {
	if s == nil {
		return nil, errors.New("store not configured")
	}
	var cached quote.Quote
	if hit, err := s.Cache.Get(ctx, quoteID, &cached); err != nil {
		s.Logger.Warn().Err(err).Int64("quote_id", quoteID).Msg("snapshot cache read failed")
	} else if hit {
		obs.SnapshotLoadTotal.WithLabelValues("cache").Inc()
		return &cached, nil
	}
	if s.Pool == nil {
		return nil, errors.New("store not configured")
	}

	q, err := s.loadQuoteRow(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if err := s.loadProducts(ctx, q); err != nil {
		return nil, err
	}
	if err := s.loadClient(ctx, q); err != nil {
		return nil, err
	}
	if err := s.loadConfig(ctx, q); err != nil {
		return nil, err
	}
	q.Normalize()
	obs.SnapshotLoadTotal.WithLabelValues("db").Inc()

	if err := s.Cache.Set(ctx, quoteID, q); err != nil {
		s.Logger.Warn().Err(err).Int64("quote_id", quoteID).Msg("snapshot cache write failed")
	}
	return q, nil
}

func (s *Store) loadQuoteRow(ctx context.Context, quoteID int64) (*quote.Quote, error) {
	const query = `
		SELECT id, number, status, client_id, delivery_method,
		       shipping_net::text, shipping_gross::text
		FROM quotes WHERE id = $1`
	var (
		q                        quote.Quote
		shippingNet, shippingGro string
	)
	row := s.Pool.QueryRow(ctx, query, quoteID)
	if err := row.Scan(&q.ID, &q.Number, &q.Status, &q.ClientID,
		&q.Fulfillment.DeliveryMethod, &shippingNet, &shippingGro); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("quote %d: %w", quoteID, ErrQuoteNotFound)
		}
		return nil, fmt.Errorf("load quote %d: %w", quoteID, err)
	}
	shipping, err := parseCost(shippingNet, shippingGro)
	if err != nil {
		return nil, fmt.Errorf("quote %d shipping: %w", quoteID, err)
	}
	q.Costs.Shipping = shipping
	q.Fulfillment.BaseShippingCost = shipping
	return &q, nil
}

func (s *Store) loadProducts(ctx context.Context, q *quote.Quote) error {
	const productQuery = `
		SELECT idx, name, quantity FROM quote_products
		WHERE quote_id = $1 ORDER BY idx`
	rows, err := s.Pool.Query(ctx, productQuery, q.ID)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p quote.Product
		if err := rows.Scan(&p.Index, &p.Name, &p.Quantity); err != nil {
			return fmt.Errorf("scan product: %w", err)
		}
		q.Products = append(q.Products, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	if err := s.loadVariants(ctx, q); err != nil {
		return err
	}
	return s.loadFinishings(ctx, q)
}

func (s *Store) loadVariants(ctx context.Context, q *quote.Quote) error {
	const variantQuery = `
		SELECT id, product_idx, material, class,
		       price_net::text, price_gross::text,
		       final_net::text, final_gross::text,
		       discount_percent::text, reason_id, selected, visible, quantity
		FROM quote_variants WHERE quote_id = $1 ORDER BY product_idx, id`
	rows, err := s.Pool.Query(ctx, variantQuery, q.ID)
	if err != nil {
		return fmt.Errorf("load variants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			v                                  quote.Variant
			idx                                int
			origNet, origGross, finNet, finGro string
			percent                            string
		)
		if err := rows.Scan(&v.ID, &idx, &v.Material, &v.Class,
			&origNet, &origGross, &finNet, &finGro,
			&percent, &v.ReasonID, &v.Selected, &v.VisibleToClient, &v.Quantity); err != nil {
			return fmt.Errorf("scan variant: %w", err)
		}
		if v.OriginalPrice, err = parseCost(origNet, origGross); err != nil {
			return fmt.Errorf("variant %d price: %w", v.ID, err)
		}
		if v.FinalPrice, err = parseCost(finNet, finGro); err != nil {
			return fmt.Errorf("variant %d final price: %w", v.ID, err)
		}
		if v.DiscountPercent, err = decimal.NewFromString(percent); err != nil {
			return fmt.Errorf("variant %d percent: %w", v.ID, err)
		}
		p, err := q.Product(idx)
		if err != nil {
			return fmt.Errorf("variant %d: %w", v.ID, err)
		}
		p.Variants = append(p.Variants, v)
	}
	return rows.Err()
}

func (s *Store) loadFinishings(ctx context.Context, q *quote.Quote) error {
	const finishingQuery = `
		SELECT product_idx, type, color, method,
		       price_net::text, price_gross::text, quantity
		FROM quote_finishings WHERE quote_id = $1`
	rows, err := s.Pool.Query(ctx, finishingQuery, q.ID)
	if err != nil {
		return fmt.Errorf("load finishings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			f              quote.Finishing
			idx            int
			netStr, groStr string
		)
		if err := rows.Scan(&idx, &f.Type, &f.Color, &f.Method, &netStr, &groStr, &f.Quantity); err != nil {
			return fmt.Errorf("scan finishing: %w", err)
		}
		if f.Price, err = parseCost(netStr, groStr); err != nil {
			return fmt.Errorf("finishing for product %d: %w", idx, err)
		}
		p, err := q.Product(idx)
		if err != nil {
			return fmt.Errorf("finishing: %w", err)
		}
		finishing := f
		p.Finishing = &finishing
	}
	return rows.Err()
}

func (s *Store) loadClient(ctx context.Context, q *quote.Quote) error {
	const query = `
		SELECT id, name, email, phone, street, city, postal_code, invoice_name, invoice_nip
		FROM clients WHERE id = $1`
	row := s.Pool.QueryRow(ctx, query, q.ClientID)
	c := &q.Client
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Street, &c.City,
		&c.PostalCode, &c.InvoiceName, &c.InvoiceNIP); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Quotes may predate the client registry; an empty snapshot is valid.
			return nil
		}
		return fmt.Errorf("load client %d: %w", q.ClientID, err)
	}
	return nil
}

func (s *Store) loadConfig(ctx context.Context, q *quote.Quote) error {
	var err error
	if q.Config.OrderSources, err = s.loadOptions(ctx, "order_sources"); err != nil {
		return err
	}
	if q.Config.OrderStatuses, err = s.loadOptions(ctx, "order_statuses"); err != nil {
		return err
	}
	if q.Config.PaymentMethods, err = s.loadNames(ctx, "payment_methods"); err != nil {
		return err
	}
	q.Config.DeliveryMethods, err = s.loadNames(ctx, "delivery_methods")
	return err
}

func (s *Store) loadOptions(ctx context.Context, table string) ([]quote.ConfigOption, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()
	var out []quote.ConfigOption
	for rows.Next() {
		var opt quote.ConfigOption
		if err := rows.Scan(&opt.ID, &opt.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, opt)
	}
	return out, rows.Err()
}

func (s *Store) loadNames(ctx context.Context, table string) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT name FROM `+table+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ListDiscountReasons returns the catalog of accepted discount
// justifications.
func (s *Store) ListDiscountReasons(ctx context.Context) ([]quote.DiscountReason, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("store not configured")
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, name FROM discount_reasons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list discount reasons: %w", err)
	}
	defer rows.Close()
	var out []quote.DiscountReason
	for rows.Next() {
		var r quote.DiscountReason
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan discount reason: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func parseCost(net, gross string) (quote.Cost, error) {
	n, err := decimal.NewFromString(net)
	if err != nil {
		return quote.Cost{}, fmt.Errorf("parse net %q: %w", net, err)
	}
	g, err := decimal.NewFromString(gross)
	if err != nil {
		return quote.Cost{}, fmt.Errorf("parse gross %q: %w", gross, err)
	}
	return quote.Cost{Net: n, Gross: g}, nil
}
