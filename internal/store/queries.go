package store

// SQL query constants organized by entity.
// All SQL lives here — PostgresStore methods reference these constants.

// Product queries.
const (
	queryInsertProduct = `
		INSERT INTO products (
			external_id, name, code, price, currency, image_url,
			product_type, category_external_id, trademark_external_id,
			synced_at, created_at, updated_at
		) VALUES (
			@external_id, @name, @code, @price, @currency, @image_url,
			@product_type, @category_external_id, @trademark_external_id,
			@synced_at, now(), now()
		)
		RETURNING id, created_at, updated_at`

	queryUpdateProduct = `
		UPDATE products SET
			name = @name,
			code = @code,
			price = @price,
			currency = @currency,
			image_url = @image_url,
			product_type = @product_type,
			category_external_id = @category_external_id,
			trademark_external_id = @trademark_external_id,
			synced_at = @synced_at,
			updated_at = now()
		WHERE external_id = @external_id
		RETURNING id`

	queryGetProductByExternalID = `
		SELECT id, external_id, name, code, price, currency,
			COALESCE(image_url, ''), product_type,
			COALESCE(category_external_id, ''), COALESCE(trademark_external_id, ''),
			synced_at, created_at, updated_at
		FROM products
		WHERE external_id = $1`

	queryCountProducts = `SELECT count(*) FROM products`
)

// Category queries.
const (
	queryInsertCategory = `
		INSERT INTO categories (
			external_id, name, parent_external_id, synced_at, created_at, updated_at
		) VALUES (
			@external_id, @name, @parent_external_id, @synced_at, now(), now()
		)
		RETURNING id, created_at, updated_at`

	queryUpdateCategory = `
		UPDATE categories SET
			name = @name,
			parent_external_id = @parent_external_id,
			synced_at = @synced_at,
			updated_at = now()
		WHERE external_id = @external_id
		RETURNING id`

	queryGetCategoryByExternalID = `
		SELECT id, external_id, name, COALESCE(parent_external_id, ''),
			synced_at, created_at, updated_at
		FROM categories
		WHERE external_id = $1`

	queryCountCategories = `SELECT count(*) FROM categories`
)

// Trademark queries.
const (
	queryInsertTrademark = `
		INSERT INTO trademarks (
			external_id, name, synced_at, created_at, updated_at
		) VALUES (
			@external_id, @name, @synced_at, now(), now()
		)
		RETURNING id, created_at, updated_at`

	queryUpdateTrademark = `
		UPDATE trademarks SET
			name = @name,
			synced_at = @synced_at,
			updated_at = now()
		WHERE external_id = @external_id
		RETURNING id`

	queryGetTrademarkByExternalID = `
		SELECT id, external_id, name, synced_at, created_at, updated_at
		FROM trademarks
		WHERE external_id = $1`

	queryCountTrademarks = `SELECT count(*) FROM trademarks`
)

// Sync run queries.
const (
	queryInsertSyncRun = `
		INSERT INTO sync_runs (entity, status, started_at)
		VALUES ($1, 'running', now())
		RETURNING id`

	queryCompleteSyncRun = `
		UPDATE sync_runs SET
			status = @status,
			total_fetched = @total_fetched,
			new_count = @new_count,
			updated_count = @updated_count,
			error_count = @error_count,
			error_text = @error_text,
			finished_at = now()
		WHERE id = @id`

	querySelectSyncRuns = `
		SELECT id, entity, status, total_fetched, new_count, updated_count,
			error_count, COALESCE(error_text, ''), started_at, finished_at
		FROM sync_runs`

	queryListSyncRuns = querySelectSyncRuns + `
		WHERE ($1 = '' OR entity = $1)
		ORDER BY started_at DESC
		LIMIT $2`

	queryLastSuccessfulRun = querySelectSyncRuns + `
		WHERE entity = $1 AND status IN ('succeeded', 'partial')
		ORDER BY started_at DESC
		LIMIT 1`
)
