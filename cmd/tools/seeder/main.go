package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	catIDs := seedCategories(db)
	seedProducts(db, catIDs)
	seedCustomers(db)
	seedPromotions(db)

	log.Println("Seeding completed successfully!")
}

func seedCategories(db *sql.DB) map[string]string {
	categories := []string{
		"DRINKS",
		"DESSERTS",
		"SNACKS",
	}

	fmt.Println("Seeding Categories...")
	catIDs := make(map[string]string)
	for _, name := range categories {
		var id string
		err := db.QueryRow(`
			INSERT INTO categories (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id;
		`, name).Scan(&id)
		if err != nil {
			log.Printf("Failed to upsert category %s: %v", name, err)
			continue
		}
		catIDs[name] = id
	}
	return catIDs
}

func seedProducts(db *sql.DB, catIDs map[string]string) {
	products := []struct {
		Name     string
		Category string
		Prices   map[string]int64
	}{
		{"Es Kopi Susu", "DRINKS", map[string]int64{"STD": 50000, "SIZE_LA": 60000, "SIZE_PHE": 75000}},
		{"Matcha Latte", "DRINKS", map[string]int64{"STD": 55000, "SIZE_LA": 65000, "SIZE_PHE": 80000}},
		{"Teh Tarik", "DRINKS", map[string]int64{"STD": 30000, "SIZE_LA": 38000}},
		{"Americano", "DRINKS", map[string]int64{"STD": 40000, "SIZE_LA": 48000, "SIZE_PHE": 58000}},
		{"Lemon Squash", "DRINKS", map[string]int64{"STD": 35000, "SIZE_LA": 42000}},
		{"Brownies Lumer", "DESSERTS", map[string]int64{"STD": 45000}},
		{"Pisang Goreng Keju", "DESSERTS", map[string]int64{"STD": 38000}},
		{"Kentang Goreng", "SNACKS", map[string]int64{"STD": 25000, "SIZE_LA": 32000}},
		{"Roti Bakar Coklat", "SNACKS", map[string]int64{"STD": 28000}},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		catID, ok := catIDs[p.Category]
		if !ok {
			log.Printf("Missing category ID for %s", p.Category)
			continue
		}

		var prodID string
		err := db.QueryRow(`
			SELECT id FROM products WHERE name = $1 AND category_id = $2;
		`, p.Name, catID).Scan(&prodID)
		if err == sql.ErrNoRows {
			err = db.QueryRow(`
				INSERT INTO products (name, category_id, is_active)
				VALUES ($1, $2, true)
				RETURNING id;
			`, p.Name, catID).Scan(&prodID)
		}
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
			continue
		}

		for sizeKey, price := range p.Prices {
			_, err := db.Exec(`
				INSERT INTO product_prices (product_id, size_key, price)
				VALUES ($1, $2, $3)
				ON CONFLICT (product_id, size_key) DO UPDATE SET
					price = EXCLUDED.price,
					updated_at = now();
			`, prodID, sizeKey, price)
			if err != nil {
				log.Printf("Failed to seed price %s/%s: %v", p.Name, sizeKey, err)
			}
		}
	}
}

func seedCustomers(db *sql.DB) {
	customers := []struct {
		Name   string
		Phone  string
		ChatID string
	}{
		{"Budi Santoso", "08123456789", "568219"},
		{"Siti Aminah", "08198765432", "712904"},
		{"Andi Pratama", "08211223344", ""},
		{"Dewi Lestari", "08577889900", "330571"},
		{"Eko Kurniawan", "", ""},
	}

	fmt.Println("Seeding Customers...")
	for _, c := range customers {
		var exists bool
		if err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM customers WHERE name = $1)", c.Name).Scan(&exists); err != nil {
			log.Printf("Failed to check customer %s: %v", c.Name, err)
			continue
		}
		if exists {
			continue
		}
		_, err := db.Exec(`
			INSERT INTO customers (name, phone, chat_id)
			VALUES ($1, NULLIF($2, ''), NULLIF($3, ''));
		`, c.Name, c.Phone, c.ChatID)
		if err != nil {
			log.Printf("Failed to seed customer %s: %v", c.Name, err)
		}
	}
}

func seedPromotions(db *sql.DB) {
	promotions := []struct {
		Code       string
		Type       string
		Priority   int
		PercentOff int
		MinQty     int
		Scopes     []string
	}{
		{"SUMMER10", "DISCOUNT", 10, 10, 0, []string{"DRINKS"}},
		{"DESSERT15", "DISCOUNT", 20, 15, 0, []string{"DESSERTS"}},
		{"BUY5UPSIZE", "RULE", 10, 0, 5, []string{"DRINKS"}},
	}

	fmt.Println("Seeding Promotions...")
	for _, p := range promotions {
		var promoID string
		err := db.QueryRow(`
			INSERT INTO promotions (code, type, priority, is_stackable, is_active, start_at, end_at, percent_off, min_qty)
			VALUES ($1, $2, $3, false, true, NOW(), NOW() + INTERVAL '1 year', $4, $5)
			ON CONFLICT (code) DO UPDATE SET
				type = EXCLUDED.type,
				priority = EXCLUDED.priority,
				percent_off = EXCLUDED.percent_off,
				min_qty = EXCLUDED.min_qty
			RETURNING id;
		`, p.Code, p.Type, p.Priority, p.PercentOff, p.MinQty).Scan(&promoID)
		if err != nil {
			log.Printf("Failed to seed promotion %s: %v", p.Code, err)
			continue
		}

		if _, err := db.Exec("DELETE FROM promotion_scopes WHERE promotion_id = $1", promoID); err != nil {
			log.Printf("Failed to reset scopes for %s: %v", p.Code, err)
			continue
		}
		for i, category := range p.Scopes {
			_, err := db.Exec(`
				INSERT INTO promotion_scopes (promotion_id, category, is_included, position)
				VALUES ($1, $2, true, $3);
			`, promoID, category, i)
			if err != nil {
				log.Printf("Failed to seed scope %s/%s: %v", p.Code, category, err)
			}
		}
	}
}
