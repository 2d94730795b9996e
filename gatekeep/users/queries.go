package users

const (
	queryFindByEmail = `
		SELECT id, email, name, role, password_hash, refresh_token, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	queryFindByID = `
		SELECT id, email, name, role, password_hash, refresh_token, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	queryCreate = `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, name, role, password_hash, refresh_token, created_at, updated_at
	`

	queryFindOrCreateByEmail = `
		INSERT INTO users (email, name)
		VALUES ($1, $2)
		ON CONFLICT (email)
		DO UPDATE SET updated_at = NOW()
		RETURNING id, email, name, role, password_hash, refresh_token, created_at, updated_at
	`

	queryUpdateRefreshToken = `
		UPDATE users
		SET refresh_token = $2, updated_at = NOW()
		WHERE id = $1
	`

	queryRotateRefreshToken = `
		UPDATE users
		SET refresh_token = $3, updated_at = NOW()
		WHERE id = $1 AND refresh_token = $2
	`

	queryClearRefreshToken = `
		UPDATE users
		SET refresh_token = NULL, updated_at = NOW()
		WHERE id = $1
	`
)
