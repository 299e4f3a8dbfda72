package db

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SeedProduct is one catalog row, as read from the embedded default menu or a YAML file.
type SeedProduct struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Price       string `yaml:"price"`
	Description string `yaml:"description"`
	PrepMinutes *int64 `yaml:"prep_minutes"`
	Stock       int64  `yaml:"stock"`
	MinStock    *int64 `yaml:"min_stock"`
	Unavailable bool   `yaml:"unavailable"`
}

type seedFile struct {
	Products []SeedProduct `yaml:"products"`
}

func i64(v int64) *int64 { return &v }

// DefaultCatalog is the house menu used when no seed file is configured.
func DefaultCatalog() []SeedProduct {
	return []SeedProduct{
		{Name: "Ceviche de Camarón", Category: "Entradas", Price: "8.50", PrepMinutes: i64(8), Stock: 30, MinStock: i64(5)},
		{Name: "Ceviche de Pescado", Category: "Entradas", Price: "7.00", PrepMinutes: i64(8), Stock: 30, MinStock: i64(5)},
		{Name: "Ceviche Mixto", Category: "Entradas", Price: "9.50", PrepMinutes: i64(10), Stock: 25, MinStock: i64(5)},
		{Name: "Arroz con Mariscos", Category: "Platos Fuertes", Price: "12.00", PrepMinutes: i64(30), Stock: 20, MinStock: i64(4)},
		{Name: "Corvina Frita", Category: "Platos Fuertes", Price: "14.00", PrepMinutes: i64(20), Stock: 20, MinStock: i64(4)},
		{Name: "Encocado de Camarón", Category: "Platos Fuertes", Price: "13.50", PrepMinutes: i64(25), Stock: 20, MinStock: i64(4)},
		{Name: "Cazuela de Mariscos", Category: "Platos Fuertes", Price: "15.00", PrepMinutes: i64(28), Stock: 15, MinStock: i64(3)},
		{Name: "Sudado de Pescado", Category: "Platos Fuertes", Price: "11.00", PrepMinutes: i64(22), Stock: 15, MinStock: i64(3)},
		{Name: "Arroz Blanco", Category: "Acompañamientos", Price: "2.00", PrepMinutes: i64(15), Stock: 50, MinStock: i64(10)},
		{Name: "Patacones", Category: "Acompañamientos", Price: "2.50", PrepMinutes: i64(10), Stock: 50, MinStock: i64(10)},
		{Name: "Coca Cola", Category: "Bebidas", Price: "1.50", PrepMinutes: i64(1), Stock: 48, MinStock: i64(12)},
		{Name: "Agua", Category: "Bebidas", Price: "1.00", PrepMinutes: i64(1), Stock: 48, MinStock: i64(12)},
		{Name: "Jugo Natural", Category: "Bebidas", Price: "2.50", PrepMinutes: i64(2), Stock: 30, MinStock: i64(6)},
	}
}

// LoadCatalogFile reads a YAML document of the form `products: [...]`.
func LoadCatalogFile(path string) ([]SeedProduct, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	for i, p := range f.Products {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Category) == "" {
			return nil, fmt.Errorf("catalog file: product %d needs name and category", i+1)
		}
		if p.Stock < 0 {
			return nil, fmt.Errorf("catalog file: %s has negative stock", p.Name)
		}
		if _, err := decimal.NewFromString(p.Price); err != nil {
			return nil, fmt.Errorf("catalog file: %s has invalid price %q", p.Name, p.Price)
		}
	}
	return f.Products, nil
}

// SeedCatalog inserts missing products and refreshes metadata of existing ones.
// Stock of existing products is never touched.
func SeedCatalog(db *sql.DB, products []SeedProduct) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range products {
		if err := upsertProduct(tx, p); err != nil {
			return fmt.Errorf("seed %s: %w", p.Name, err)
		}
	}

	return tx.Commit()
}

func upsertProduct(tx *sql.Tx, p SeedProduct) error {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return err
	}

	// Conditional insert (valid in SQLite)
	_, err = tx.Exec(`
		INSERT INTO products(name,category,price,description,is_available,prep_minutes,stock,min_stock,created_at,updated_at)
		SELECT ?,?,?,?,?,?,?,?,?,?
		WHERE NOT EXISTS (SELECT 1 FROM products WHERE name=?);`,
		p.Name, p.Category, price.String(), p.Description, b2i(!p.Unavailable), p.PrepMinutes, p.Stock, p.MinStock, unixNow(), unixNow(),
		p.Name,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE products
		SET category=?, price=?, description=?, is_available=?, prep_minutes=?, min_stock=?, updated_at=?
		WHERE name=?;`,
		p.Category, price.String(), p.Description, b2i(!p.Unavailable), p.PrepMinutes, p.MinStock, unixNow(),
		p.Name,
	)
	return err
}
