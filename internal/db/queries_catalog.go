package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listCategories = `
SELECT id, name, created_at FROM categories ORDER BY name
`

// ListCategories returns all categories sorted by name.
func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const getCategoryByID = `
SELECT id, name, created_at FROM categories WHERE id = $1
`

// GetCategoryByID fetches a single category.
func (q *Queries) GetCategoryByID(ctx context.Context, id pgtype.UUID) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, getCategoryByID, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

const createCategory = `
INSERT INTO categories (name) VALUES ($1) RETURNING id, name, created_at
`

// CreateCategory inserts a category.
func (q *Queries) CreateCategory(ctx context.Context, name string) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, createCategory, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

const updateCategory = `
UPDATE categories SET name = $2 WHERE id = $1 RETURNING id, name, created_at
`

// UpdateCategory renames a category.
func (q *Queries) UpdateCategory(ctx context.Context, id pgtype.UUID, name string) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, updateCategory, id, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

const deleteCategory = `
DELETE FROM categories WHERE id = $1
`

// DeleteCategory removes a category.
func (q *Queries) DeleteCategory(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteCategory, id)
	return err
}

const listSubcategoriesByCategory = `
SELECT id, category_id, name, created_at FROM subcategories WHERE category_id = $1 ORDER BY name
`

// ListSubcategoriesByCategory returns the subcategories of one category.
func (q *Queries) ListSubcategoriesByCategory(ctx context.Context, categoryID pgtype.UUID) ([]Subcategory, error) {
	rows, err := q.db.Query(ctx, listSubcategoriesByCategory, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subcategory
	for rows.Next() {
		var s Subcategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const createSubcategory = `
INSERT INTO subcategories (category_id, name) VALUES ($1, $2)
RETURNING id, category_id, name, created_at
`

// CreateSubcategory inserts a subcategory under a category.
func (q *Queries) CreateSubcategory(ctx context.Context, categoryID pgtype.UUID, name string) (Subcategory, error) {
	var s Subcategory
	err := q.db.QueryRow(ctx, createSubcategory, categoryID, name).Scan(&s.ID, &s.CategoryID, &s.Name, &s.CreatedAt)
	return s, err
}

const updateSubcategory = `
UPDATE subcategories SET name = $2 WHERE id = $1
RETURNING id, category_id, name, created_at
`

// UpdateSubcategory renames a subcategory.
func (q *Queries) UpdateSubcategory(ctx context.Context, id pgtype.UUID, name string) (Subcategory, error) {
	var s Subcategory
	err := q.db.QueryRow(ctx, updateSubcategory, id, name).Scan(&s.ID, &s.CategoryID, &s.Name, &s.CreatedAt)
	return s, err
}

const deleteSubcategory = `
DELETE FROM subcategories WHERE id = $1
`

// DeleteSubcategory removes a subcategory.
func (q *Queries) DeleteSubcategory(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteSubcategory, id)
	return err
}

const listProducts = `
SELECT id, name, category_id, subcategory_id, is_active, created_at
FROM products ORDER BY name
`

// ListProducts returns all products sorted by name.
func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.SubcategoryID, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const getProductByID = `
SELECT id, name, category_id, subcategory_id, is_active, created_at
FROM products WHERE id = $1
`

// GetProductByID fetches a single product.
func (q *Queries) GetProductByID(ctx context.Context, id pgtype.UUID) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, getProductByID, id).Scan(&p.ID, &p.Name, &p.CategoryID, &p.SubcategoryID, &p.IsActive, &p.CreatedAt)
	return p, err
}

// CreateProductParams groups the insert arguments for CreateProduct.
type CreateProductParams struct {
	Name          string
	CategoryID    pgtype.UUID
	SubcategoryID pgtype.UUID
	IsActive      bool
}

const createProduct = `
INSERT INTO products (name, category_id, subcategory_id, is_active)
VALUES ($1, $2, $3, $4)
RETURNING id, name, category_id, subcategory_id, is_active, created_at
`

// CreateProduct inserts a product.
func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, createProduct, arg.Name, arg.CategoryID, arg.SubcategoryID, arg.IsActive).
		Scan(&p.ID, &p.Name, &p.CategoryID, &p.SubcategoryID, &p.IsActive, &p.CreatedAt)
	return p, err
}

// UpdateProductParams groups the update arguments for UpdateProduct.
type UpdateProductParams struct {
	ID            pgtype.UUID
	Name          string
	CategoryID    pgtype.UUID
	SubcategoryID pgtype.UUID
	IsActive      bool
}

const updateProduct = `
UPDATE products SET name = $2, category_id = $3, subcategory_id = $4, is_active = $5
WHERE id = $1
RETURNING id, name, category_id, subcategory_id, is_active, created_at
`

// UpdateProduct mutates a product record.
func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, updateProduct, arg.ID, arg.Name, arg.CategoryID, arg.SubcategoryID, arg.IsActive).
		Scan(&p.ID, &p.Name, &p.CategoryID, &p.SubcategoryID, &p.IsActive, &p.CreatedAt)
	return p, err
}

const deleteProduct = `
DELETE FROM products WHERE id = $1
`

// DeleteProduct removes a product.
func (q *Queries) DeleteProduct(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteProduct, id)
	return err
}

const getProductCategoryName = `
SELECT c.name FROM products p JOIN categories c ON c.id = p.category_id WHERE p.id = $1
`

// GetProductCategoryName resolves the category name a product belongs to.
func (q *Queries) GetProductCategoryName(ctx context.Context, productID pgtype.UUID) (string, error) {
	var name string
	err := q.db.QueryRow(ctx, getProductCategoryName, productID).Scan(&name)
	return name, err
}

const getProductPrice = `
SELECT price FROM product_prices WHERE product_id = $1 AND size_key = $2
`

// GetProductPrice returns the unit price for the exact (product, size) pair.
func (q *Queries) GetProductPrice(ctx context.Context, productID pgtype.UUID, sizeKey string) (int64, error) {
	var price int64
	err := q.db.QueryRow(ctx, getProductPrice, productID, sizeKey).Scan(&price)
	return price, err
}

const listPricesByProduct = `
SELECT product_id, size_key, price, updated_at
FROM product_prices WHERE product_id = $1 ORDER BY size_key
`

// ListPricesByProduct returns all size variant prices for a product.
func (q *Queries) ListPricesByProduct(ctx context.Context, productID pgtype.UUID) ([]ProductPrice, error) {
	rows, err := q.db.Query(ctx, listPricesByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProductPrice
	for rows.Next() {
		var p ProductPrice
		if err := rows.Scan(&p.ProductID, &p.SizeKey, &p.Price, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const upsertProductPrice = `
INSERT INTO product_prices (product_id, size_key, price)
VALUES ($1, $2, $3)
ON CONFLICT (product_id, size_key) DO UPDATE SET price = EXCLUDED.price, updated_at = now()
RETURNING product_id, size_key, price, updated_at
`

// UpsertProductPrice creates or replaces the price for one size variant.
func (q *Queries) UpsertProductPrice(ctx context.Context, productID pgtype.UUID, sizeKey string, price int64) (ProductPrice, error) {
	var p ProductPrice
	err := q.db.QueryRow(ctx, upsertProductPrice, productID, sizeKey, price).
		Scan(&p.ProductID, &p.SizeKey, &p.Price, &p.UpdatedAt)
	return p, err
}

const deleteProductPrice = `
DELETE FROM product_prices WHERE product_id = $1 AND size_key = $2
`

// DeleteProductPrice removes the price for one size variant.
func (q *Queries) DeleteProductPrice(ctx context.Context, productID pgtype.UUID, sizeKey string) error {
	_, err := q.db.Exec(ctx, deleteProductPrice, productID, sizeKey)
	return err
}
