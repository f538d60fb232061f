// Seeder loads a small MRO catalog and a handful of contract discounts so a
// fresh environment has something to price and punch out against.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedCatalog(ctx, pool)
	seedContracts(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) {
	items := []struct {
		SKU, Name, Description, Supplier, Category, Code string
		ListPrice                                        string
		UOM, MfrName, MfrPart                            string
	}{
		{"GRA-HEX-0001", `Hex Cap Screw Grade 8, 1/2"-13 x 2"`, "Zinc-plated alloy steel, box of 50", "Grainger", "Fasteners", "31161500", "18.40", "BX", "Falcon Fastening", "FF-8213-200"},
		{"GRA-GLV-0014", "Nitrile Gloves, 5 mil, Large", "Powder free, box of 100", "Grainger", "Safety", "46181504", "12.95", "BX", "MechPro", "MP-NG5L"},
		{"GRA-DRL-0102", `Cordless Drill/Driver Kit, 20V, 1/2"`, "Brushless motor, two batteries and charger", "Grainger", "Power Tools", "27112700", "249.00", "EA", "Dayton", "DT-CD20B"},
		{"FAS-ANC-0233", `Wedge Anchor, 3/8" x 3"`, "Carbon steel, pack of 25", "Fastenal", "Fasteners", "31161600", "31.75", "PK", "Power-Stud", "PS-38300"},
		{"FAS-EYE-0518", "Safety Glasses, Clear Anti-Fog", "Wraparound polycarbonate lens", "Fastenal", "Safety", "46181802", "4.29", "EA", "Edge Eyewear", "EE-CAF01"},
		{"FAS-BRG-0410", "Ball Bearing, Single Row, 30mm Bore", "Sealed, C3 clearance", "Fastenal", "Bearings", "31171504", "22.60", "EA", "Timken", "TK-6206-2RS"},
		{"MSC-END-0703", `End Mill, Carbide, 4 Flute, 1/2"`, "TiAlN coated, square end", "MSC Industrial", "Cutting Tools", "23171602", "54.18", "EA", "Accupro", "AP-EM4050"},
		{"MSC-CLP-0811", `C-Clamp, Forged Steel, 6"`, "Deep throat pattern", "MSC Industrial", "Hand Tools", "27111901", "28.35", "EA", "Wilton", "WL-406"},
		{"MSC-LUB-0920", "Cutting Fluid, Soluble Oil, 1 gal", "General purpose machining coolant", "MSC Industrial", "Lubricants", "15121500", "39.99", "GL", "Castrol", "CT-SX9001"},
		{"GRA-PMP-0371", "Centrifugal Pump, 1 HP, Cast Iron", "Close coupled, 115/230V", "Grainger", "Pumps", "40151510", "612.00", "EA", "Dayton", "DT-4UA68"},
	}

	log.Println("Seeding catalog items...")
	for _, it := range items {
		_, err := pool.Exec(ctx, `
			INSERT INTO catalog_items
				(sku, name, description, supplier, category, classification_code, list_price, unit_of_measure, manufacturer_name, manufacturer_part_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (sku) DO NOTHING`,
			it.SKU, it.Name, it.Description, it.Supplier, it.Category, it.Code, it.ListPrice, it.UOM, it.MfrName, it.MfrPart)
		if err != nil {
			log.Printf("Failed to seed item %s: %v", it.SKU, err)
		}
	}
}

func seedContracts(ctx context.Context, pool *pgxpool.Pool) {
	contracts := []struct {
		Supplier, Category string
		Percentage         float64
	}{
		{"Grainger", "Safety", 35},
		{"Fastenal", "Fasteners", 42},
		{"MSC Industrial", "Cutting Tools", 30},
	}

	log.Println("Seeding contract discounts...")
	for _, c := range contracts {
		_, err := pool.Exec(ctx, `
			INSERT INTO contract_discounts (supplier, category, percentage, active)
			VALUES ($1, $2, $3, true)
			ON CONFLICT (supplier, lower(category)) DO NOTHING`,
			c.Supplier, c.Category, c.Percentage)
		if err != nil {
			log.Printf("Failed to seed contract %s/%s: %v", c.Supplier, c.Category, err)
		}
	}
}
