package testutil

// PharmacyMigrations returns the pharmacy schema used by integration tests.
// Row-level security policies are created but the test role owns the tables,
// so they only apply once FORCE ROW LEVEL SECURITY is switched on.
func PharmacyMigrations() []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

		`CREATE TABLE IF NOT EXISTS pharmacies (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS medicines (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			generic_name VARCHAR(255),
			manufacturer VARCHAR(255) NOT NULL,
			strength VARCHAR(100),
			unit_type VARCHAR(50) NOT NULL DEFAULT 'strips',
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS suppliers (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			pharmacy_id UUID NOT NULL REFERENCES pharmacies(id),
			name VARCHAR(255) NOT NULL,
			contact_person VARCHAR(255),
			phone VARCHAR(50),
			email VARCHAR(255),
			address TEXT,
			city VARCHAR(100),
			gst_number VARCHAR(50),
			drug_license_number VARCHAR(100),
			credit_days INTEGER NOT NULL DEFAULT 0,
			credit_limit NUMERIC(12,2) NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT suppliers_pharmacy_name_key UNIQUE (pharmacy_id, name)
		)`,

		`CREATE TABLE IF NOT EXISTS purchases (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			pharmacy_id UUID NOT NULL REFERENCES pharmacies(id),
			supplier_id UUID REFERENCES suppliers(id),
			invoice_number VARCHAR(100) NOT NULL,
			invoice_date DATE NOT NULL,
			purchase_date DATE NOT NULL,
			total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			status VARCHAR(50) NOT NULL DEFAULT 'received',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS purchase_items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			purchase_id UUID NOT NULL REFERENCES purchases(id),
			medicine_id UUID NOT NULL REFERENCES medicines(id),
			batch_number VARCHAR(100) NOT NULL,
			expiry_date DATE NOT NULL,
			quantity INTEGER NOT NULL,
			free_quantity INTEGER NOT NULL DEFAULT 0,
			mrp NUMERIC(12,2) NOT NULL DEFAULT 0,
			purchase_rate NUMERIC(12,2) NOT NULL DEFAULT 0,
			gross_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			tax_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			net_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT purchase_items_quantity_positive CHECK (quantity > 0),
			CONSTRAINT purchase_items_rate_non_negative CHECK (purchase_rate >= 0),
			CONSTRAINT purchase_items_mrp_non_negative CHECK (mrp >= 0)
		)`,

		`CREATE TABLE IF NOT EXISTS current_inventory (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			pharmacy_id UUID NOT NULL REFERENCES pharmacies(id),
			medicine_id UUID NOT NULL REFERENCES medicines(id),
			purchase_item_id UUID REFERENCES purchase_items(id) DEFERRABLE INITIALLY DEFERRED,
			batch_number VARCHAR(100) NOT NULL,
			expiry_date DATE NOT NULL,
			current_stock INTEGER NOT NULL DEFAULT 0,
			last_purchase_rate NUMERIC(12,2) NOT NULL DEFAULT 0,
			current_mrp NUMERIC(12,2) NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS stock_transactions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			pharmacy_id UUID NOT NULL REFERENCES pharmacies(id),
			medicine_id UUID NOT NULL REFERENCES medicines(id),
			purchase_item_id UUID REFERENCES purchase_items(id) DEFERRABLE INITIALLY DEFERRED,
			transaction_type VARCHAR(50) NOT NULL,
			batch_number VARCHAR(100) NOT NULL,
			expiry_date DATE NOT NULL,
			quantity_in INTEGER NOT NULL DEFAULT 0,
			quantity_out INTEGER NOT NULL DEFAULT 0,
			rate NUMERIC(12,2) NOT NULL DEFAULT 0,
			amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
		)`,

		`CREATE TABLE IF NOT EXISTS expiry_alerts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			pharmacy_id UUID NOT NULL REFERENCES pharmacies(id),
			medicine_id UUID NOT NULL REFERENCES medicines(id),
			purchase_item_id UUID NOT NULL UNIQUE REFERENCES purchase_items(id) ON DELETE CASCADE,
			batch_number VARCHAR(100) NOT NULL,
			expiry_date DATE NOT NULL,
			days_to_expiry INTEGER NOT NULL,
			status VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_purchase_items_batch ON purchase_items(medicine_id, batch_number, expiry_date, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_current_inventory_expiry ON current_inventory(pharmacy_id, expiry_date) WHERE is_active AND current_stock > 0`,

		`ALTER TABLE suppliers ENABLE ROW LEVEL SECURITY`,
		`ALTER TABLE purchases ENABLE ROW LEVEL SECURITY`,
		`ALTER TABLE current_inventory ENABLE ROW LEVEL SECURITY`,
		`ALTER TABLE stock_transactions ENABLE ROW LEVEL SECURITY`,
		`ALTER TABLE expiry_alerts ENABLE ROW LEVEL SECURITY`,
		`DO $$
		DECLARE t TEXT;
		BEGIN
			FOREACH t IN ARRAY ARRAY['suppliers', 'purchases', 'current_inventory', 'stock_transactions', 'expiry_alerts'] LOOP
				EXECUTE format('DROP POLICY IF EXISTS pharmacy_isolation ON %I', t);
				EXECUTE format(
					'CREATE POLICY pharmacy_isolation ON %I USING (pharmacy_id = current_setting(''app.current_pharmacy'', true)::uuid)',
					t);
			END LOOP;
		END $$`,
	}
}
