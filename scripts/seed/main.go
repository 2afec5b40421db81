package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/techfix/techfix/internal/app"
	"github.com/techfix/techfix/internal/invoicing"
)

type seedInvoice struct {
	report invoicing.Report
	form   *invoicing.FormData
}

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)

	stores, err := app.OpenStores(ctx, cfg, logger, nil)
	if err != nil {
		log.Fatalf("open stores: %v", err)
	}
	defer stores.Close()

	// One millisecond apart so invoice ids never collide.
	start := time.Now()
	var n int
	service := invoicing.NewService(stores.Invoices, invoicing.Options{
		Logger: logger,
		Now: func() time.Time {
			n++
			return start.Add(time.Duration(n) * time.Millisecond)
		},
	})

	fmt.Println("→ Seeding invoices into", cfg.InvoiceStore, "store...")
	for _, s := range fixtures() {
		inv, err := service.Generate(ctx, s.report, s.form)
		if err != nil {
			log.Fatalf("seed invoice for report %s: %v", s.report.ID, err)
		}
		fmt.Printf("  %s  %-18s %s\n", inv.ID, inv.ClientName, inv.Total.StringFixed(2))
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func fixtures() []seedInvoice {
	price := decimal.NewFromInt
	return []seedInvoice{
		{
			report: invoicing.Report{
				ID: "RPT-1001", ClientID: "CL-01", ClientName: "Mona Hassan", ClientPhone: "01001234567",
				DeviceModel: "ThinkPad T480", SerialNumber: "PF1ABC",
			},
		},
		{
			report: invoicing.Report{ID: "RPT-1002", ClientID: "CL-02", ClientName: "Cairo Office Supplies"},
			form: &invoicing.FormData{
				Laptops: []invoicing.LaptopEntry{
					invoicing.NewLaptopEntry("Dell Latitude 7490", "DL-001", []string{"DL-002", "DL-003"}, price(9500), 3),
					invoicing.NewLaptopEntry("HP EliteBook 840 G5", "HP-100", nil, price(8700), 1),
				},
				AdditionalItems: []invoicing.AdditionalItem{
					invoicing.NewAdditionalItem("USB-C Charger", price(450), 4),
					invoicing.NewAdditionalItem("Laptop Bag", price(300), 2),
				},
				Discount:      price(1000),
				TaxRate:       invoicing.DefaultTaxRate,
				PaymentStatus: invoicing.PaymentPartial,
				PaymentMethod: "bank transfer",
			},
		},
		{
			report: invoicing.Report{ID: "RPT-1003", ClientID: "CL-01", ClientName: "Mona Hassan"},
			form: &invoicing.FormData{
				AdditionalItems: []invoicing.AdditionalItem{
					invoicing.NewAdditionalItem("SSD 512GB", price(2200), 1),
				},
				TaxRate:       decimal.Zero,
				PaymentStatus: invoicing.PaymentPaid,
				PaymentMethod: "cash",
			},
		},
	}
}
