package store

import (
	"context"
	"fmt"

	"retail-inventory/internal/models"
)

// LockAndRead locks the product row for the rest of the transaction (FOR UPDATE lock)
// and returns its current quantity and wholesale price. A concurrent holder of the
// same row makes this call wait until that transaction ends or lock_timeout fires.
func (t *Tx) LockAndRead(ctx context.Context, ownerID, productID int64) (*models.StockLevel, error) {
	var level models.StockLevel
	err := t.tx.GetContext(ctx, &level, `
		SELECT id, name, quantity, wholesale_price
		FROM products
		WHERE owner_id = $1 AND id = $2 AND is_active
		FOR UPDATE`, ownerID, productID)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("lock product %d", productID))
	}
	return &level, nil
}

// Decrement removes amount units from a row the caller already locked and checked.
func (t *Tx) Decrement(ctx context.Context, ownerID, productID int64, amount int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE products SET quantity = quantity - $1
		WHERE owner_id = $2 AND id = $3`, amount, ownerID, productID)
	if err != nil {
		return classify(err, fmt.Sprintf("decrement product %d", productID))
	}
	return expectRow(res, fmt.Sprintf("decrement product %d", productID))
}

// increment adds amount units to a locked row
func (t *Tx) increment(ctx context.Context, ownerID, productID int64, amount int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE products SET quantity = quantity + $1
		WHERE owner_id = $2 AND id = $3`, amount, ownerID, productID)
	if err != nil {
		return classify(err, fmt.Sprintf("increment product %d", productID))
	}
	return expectRow(res, fmt.Sprintf("increment product %d", productID))
}

// Increment replenishes a single product in its own unit of work and logs the
// stock addition at the product's current wholesale price.
func (s *Store) Increment(ctx context.Context, ownerID, productID int64, amount int) (*models.StockAddition, error) {
	var addition *models.StockAddition
	err := s.WithTx(ctx, func(tx *Tx) error {
		level, err := tx.LockAndRead(ctx, ownerID, productID)
		if err != nil {
			return err
		}

		if err := tx.increment(ctx, ownerID, productID, amount); err != nil {
			return err
		}

		addition = &models.StockAddition{
			OwnerID:            ownerID,
			ProductID:          productID,
			QuantityAdded:      amount,
			WholesalePriceEach: level.WholesalePrice,
		}
		return tx.AppendStockAddition(ctx, addition)
	})
	if err != nil {
		return nil, err
	}
	return addition, nil
}

// Archive soft-deletes an active product. Archiving an already archived
// product reports ErrNotFound.
func (s *Store) Archive(ctx context.Context, ownerID, productID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET is_active = false
		WHERE owner_id = $1 AND id = $2 AND is_active`, ownerID, productID)
	if err != nil {
		return classify(err, fmt.Sprintf("archive product %d", productID))
	}
	return expectRow(res, fmt.Sprintf("archive product %d", productID))
}

// CreateProduct inserts a catalog item and logs its opening stock in one transaction
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		query := `
			INSERT INTO products (owner_id, type_id, name, quantity, wholesale_price, sale_price, image_url, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, true)
			RETURNING id, is_active, created_at`

		row := tx.tx.QueryRowxContext(ctx, query,
			product.OwnerID, product.TypeID, product.Name, product.Quantity,
			product.WholesalePrice, product.SalePrice, product.ImageURL)
		if err := row.Scan(&product.ID, &product.Active, &product.CreatedAt); err != nil {
			return classify(err, "create product")
		}

		return tx.AppendStockAddition(ctx, &models.StockAddition{
			OwnerID:            product.OwnerID,
			ProductID:          product.ID,
			QuantityAdded:      product.Quantity,
			WholesalePriceEach: product.WholesalePrice,
		})
	})
}

// GetProduct retrieves an active product of an owner
func (s *Store) GetProduct(ctx context.Context, ownerID, productID int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, `
		SELECT id, owner_id, type_id, name, quantity, wholesale_price, sale_price, image_url, is_active, created_at
		FROM products
		WHERE owner_id = $1 AND id = $2 AND is_active`, ownerID, productID)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("get product %d", productID))
	}
	return &product, nil
}

// ListProducts retrieves the active catalog of an owner
func (s *Store) ListProducts(ctx context.Context, ownerID int64) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, `
		SELECT id, owner_id, type_id, name, quantity, wholesale_price, sale_price, image_url, is_active, created_at
		FROM products
		WHERE owner_id = $1 AND is_active
		ORDER BY name ASC`, ownerID)
	if err != nil {
		return nil, classify(err, "list products")
	}
	return products, nil
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func expectRow(res rowsAffecter, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, op)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}
