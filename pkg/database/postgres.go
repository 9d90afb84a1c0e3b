package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/models"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string) (*PostgresDatabase, error) {
	// 尝试多种连接策略来解决Vercel Lambda的IPv6问题
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&connect_timeout=10"),
		dsn, // 最后尝试原始DSN
	}

	var db *sql.DB
	var err error

	for i, strategy := range strategies {
		fmt.Printf("🔄 Trying connection strategy %d...\n", i+1)

		db, err = sql.Open("postgres", strategy)
		if err != nil {
			fmt.Printf("❌ Strategy %d failed to open: %v\n", i+1, err)
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)                  // 限制最大连接数
		db.SetMaxIdleConns(2)                  // 限制空闲连接数
		db.SetConnMaxLifetime(5 * time.Minute) // 连接最大生命周期

		// 测试连接
		if err = db.Ping(); err != nil {
			fmt.Printf("❌ Strategy %d failed to ping: %v\n", i+1, err)
			db.Close()
			continue
		}

		fmt.Printf("✅ PostgreSQL connection established successfully with strategy %d\n", i+1)
		return &PostgresDatabase{db: db}, nil
	}

	// 所有策略都失败了
	return nil, fmt.Errorf("failed to connect to PostgreSQL with all strategies: %w", err)
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}
	// key=value 形式的 DSN 用空格分隔参数
	if !strings.Contains(dsn, "://") {
		return dsn + " " + strings.ReplaceAll(params, "&", " ")
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + params
}

// Migrate 按文件名顺序执行内嵌的建表脚本（脚本本身是幂等的）
func (db *PostgresDatabase) Migrate(ctx context.Context) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		script, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		if _, err := db.db.ExecContext(ctx, string(script)); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
		fmt.Printf("✅ Applied migration %s\n", name)
	}
	return nil
}

// withTx 在事务中执行 fn，出错回滚
func (db *PostgresDatabase) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// lockDate serializes toggle and block on one calendar day until commit.
func lockDate(ctx context.Context, tx *sql.Tx, date models.Date) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, date.String())
	return err
}

// lockArtist takes a row lock on the artist; toggles share it, delete excludes it.
func lockArtist(ctx context.Context, tx *sql.Tx, id string, exclusive bool) error {
	mode := "FOR SHARE"
	if exclusive {
		mode = "FOR UPDATE"
	}
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE id = $1 AND role = 'artist' `+mode, id).Scan(&one)
	if err == sql.ErrNoRows {
		return apperr.NotFound("artist")
	}
	return err
}

// ================= Users =================

// CreateUser 创建用户
func (db *PostgresDatabase) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, role, email, password_hash, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := db.db.ExecContext(ctx, query, user.ID, string(user.Role), normalizeEmail(user.Email),
		user.Password, user.Timezone, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("an account with this email already exists")
		}
		return apperr.Transient("create user", err)
	}
	return nil
}

const userColumns = `id, role, email, password_hash, timezone, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &role, &u.Email, &u.Password, &u.Timezone, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.UserRole(role)
	return &u, nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *PostgresDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(db.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Transient("get user by email", err)
	}
	return u, nil
}

// GetUserByID 根据ID获取用户
func (db *PostgresDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(db.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Transient("get user", err)
	}
	return u, nil
}

// ================= Artists =================

const artistQuerySQL = `
	SELECT u.id, u.email, COALESCE(p.stage_name, ''), COALESCE(p.phone, ''), COALESCE(p.link, ''),
	       COALESCE(p.category, ''), u.created_at, GREATEST(u.updated_at, COALESCE(p.updated_at, u.updated_at))
	FROM users u
	LEFT JOIN artist_profiles p ON p.user_id = u.id
	WHERE u.role = 'artist'
`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func scanArtist(row interface{ Scan(...interface{}) error }) (*models.Artist, error) {
	var a models.Artist
	var category string
	if err := row.Scan(&a.ID, &a.Email, &a.StageName, &a.Phone, &a.Link, &category, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Category = models.Category(category)
	return &a, nil
}

func getArtistPG(ctx context.Context, q queryer, id string) (*models.Artist, error) {
	a, err := scanArtist(q.QueryRowContext(ctx, artistQuerySQL+` AND u.id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("artist")
		}
		return nil, apperr.Transient("get artist", err)
	}
	return a, nil
}

func (db *PostgresDatabase) GetArtist(ctx context.Context, id string) (*models.Artist, error) {
	return getArtistPG(ctx, db.db, id)
}

func (db *PostgresDatabase) ListArtists(ctx context.Context) ([]models.Artist, error) {
	rows, err := db.db.QueryContext(ctx, artistQuerySQL+` ORDER BY u.created_at ASC`)
	if err != nil {
		return nil, apperr.Transient("list artists", err)
	}
	defer rows.Close()
	list := []models.Artist{}
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, apperr.Transient("list artists", err)
		}
		list = append(list, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("list artists", err)
	}
	return list, nil
}

func (db *PostgresDatabase) UpdateArtistProfile(ctx context.Context, id string, req models.ArtistProfileRequest) (*models.Artist, error) {
	var out *models.Artist
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockArtist(ctx, tx, id, false); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO artist_profiles (user_id, stage_name, phone, link, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			ON CONFLICT (user_id) DO UPDATE
			SET stage_name = EXCLUDED.stage_name, phone = EXCLUDED.phone, link = EXCLUDED.link, updated_at = NOW()
		`, id, req.StageName, req.Phone, req.Link)
		if err != nil {
			return err
		}
		out, err = getArtistPG(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, apperr.Transient("update profile", err)
	}
	return out, nil
}

func (db *PostgresDatabase) SetArtistCategory(ctx context.Context, id string, category models.Category) (*models.Artist, error) {
	var out *models.Artist
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockArtist(ctx, tx, id, false); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO artist_profiles (user_id, category, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			ON CONFLICT (user_id) DO UPDATE SET category = EXCLUDED.category, updated_at = NOW()
		`, id, string(category))
		if err != nil {
			return err
		}
		out, err = getArtistPG(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, apperr.Transient("set category", err)
	}
	return out, nil
}

// DeleteArtist 删除艺人及其全部可用日（单事务）
func (db *PostgresDatabase) DeleteArtist(ctx context.Context, id string) (int, error) {
	var removed int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		// FOR UPDATE waits for in-flight toggles holding FOR SHARE
		if err := lockArtist(ctx, tx, id, true); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM availability_days WHERE artist_id = $1`, id)
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()
		_, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return 0, apperr.Transient("delete artist", err)
	}
	return int(removed), nil
}

// ================= Availability =================

// ToggleAvailability 切换可用日（删除已存在的记录，否则插入）
func (db *PostgresDatabase) ToggleAvailability(ctx context.Context, day *models.AvailabilityDay) (models.ToggleAction, *models.AvailabilityDay, error) {
	var (
		action models.ToggleAction
		out    models.AvailabilityDay
	)
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockArtist(ctx, tx, day.ArtistID, false); err != nil {
			return err
		}
		if err := lockDate(ctx, tx, day.Date); err != nil {
			return err
		}
		var blocked bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM blocked_dates WHERE date = $1)`, day.Date).Scan(&blocked); err != nil {
			return err
		}
		if blocked {
			return apperr.ErrDateBlocked
		}

		out = models.AvailabilityDay{ArtistID: day.ArtistID}
		err := tx.QueryRowContext(ctx, `
			DELETE FROM availability_days WHERE artist_id = $1 AND date = $2
			RETURNING id, date, note, color, created_at
		`, day.ArtistID, day.Date).Scan(&out.ID, &out.Date, &out.Note, &out.Color, &out.CreatedAt)
		if err == nil {
			action = models.ToggleRemoved
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO availability_days (id, artist_id, date, note, color, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, date, note, color, created_at
		`, day.ID, day.ArtistID, day.Date, day.Note, day.Color, day.CreatedAt).
			Scan(&out.ID, &out.Date, &out.Note, &out.Color, &out.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Concurrency(err)
			}
			return err
		}
		action = models.ToggleAdded
		return nil
	})
	if err != nil {
		return "", nil, apperr.Transient("toggle availability", err)
	}
	return action, &out, nil
}

// UpdateAvailabilityNote 更新已有可用日的备注与颜色
func (db *PostgresDatabase) UpdateAvailabilityNote(ctx context.Context, artistID string, date models.Date, note, color string) (*models.AvailabilityDay, error) {
	out := models.AvailabilityDay{ArtistID: artistID}
	err := db.db.QueryRowContext(ctx, `
		UPDATE availability_days SET note = $3, color = $4
		WHERE artist_id = $1 AND date = $2
		RETURNING id, date, note, color, created_at
	`, artistID, date, note, color).Scan(&out.ID, &out.Date, &out.Note, &out.Color, &out.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("availability")
		}
		return nil, apperr.Transient("update availability", err)
	}
	return &out, nil
}

// ListAvailability 按范围查询可用日，并关联艺人名称与分类
func (db *PostgresDatabase) ListAvailability(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilityDay, error) {
	query := `
		SELECT a.id, a.artist_id, a.date, a.note, a.color, a.created_at,
		       u.email, COALESCE(p.stage_name, ''), COALESCE(p.category, '')
		FROM availability_days a
		JOIN users u ON u.id = a.artist_id
		LEFT JOIN artist_profiles p ON p.user_id = a.artist_id
		WHERE 1 = 1
	`
	args := []interface{}{}
	if filter.ArtistID != "" {
		args = append(args, filter.ArtistID)
		query += fmt.Sprintf(" AND a.artist_id = $%d", len(args))
	}
	if !filter.Start.IsZero() {
		args = append(args, filter.Start)
		query += fmt.Sprintf(" AND a.date >= $%d", len(args))
	}
	if !filter.End.IsZero() {
		args = append(args, filter.End)
		query += fmt.Sprintf(" AND a.date <= $%d", len(args))
	}

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient("list availability", err)
	}
	defer rows.Close()

	list := []models.AvailabilityDay{}
	for rows.Next() {
		var d models.AvailabilityDay
		var artist models.Artist
		var category string
		if err := rows.Scan(&d.ID, &d.ArtistID, &d.Date, &d.Note, &d.Color, &d.CreatedAt,
			&artist.Email, &artist.StageName, &category); err != nil {
			return nil, apperr.Transient("list availability", err)
		}
		d.ArtistName = artist.DisplayName()
		d.Category = models.Category(category)
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("list availability", err)
	}
	sortAvailability(list)
	return list, nil
}

// ================= Blocked dates =================

const blockColumns = `id, date, note, created_at, updated_at`

func scanBlock(row interface{ Scan(...interface{}) error }) (*models.BlockedDate, error) {
	var b models.BlockedDate
	if err := row.Scan(&b.ID, &b.Date, &b.Note, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// BlockDate 封锁日期并级联删除当日全部可用日（单事务）
func (db *PostgresDatabase) BlockDate(ctx context.Context, block *models.BlockedDate) (*models.BlockedDate, bool, int, error) {
	var (
		out     models.BlockedDate
		created bool
		removed int64
	)
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockDate(ctx, tx, block.Date); err != nil {
			return err
		}
		// xmax = 0 only for freshly inserted tuples
		err := tx.QueryRowContext(ctx, `
			INSERT INTO blocked_dates (id, date, note, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (date) DO UPDATE SET note = EXCLUDED.note, updated_at = EXCLUDED.updated_at
			RETURNING `+blockColumns+`, (xmax = 0)
		`, block.ID, block.Date, block.Note, block.CreatedAt, block.UpdatedAt).
			Scan(&out.ID, &out.Date, &out.Note, &out.CreatedAt, &out.UpdatedAt, &created)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM availability_days WHERE date = $1`, block.Date)
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return nil, false, 0, apperr.Transient("block date", err)
	}
	return &out, created, int(removed), nil
}

func (db *PostgresDatabase) UpdateBlockNote(ctx context.Context, id, note string) (*models.BlockedDate, error) {
	b, err := scanBlock(db.db.QueryRowContext(ctx, `
		UPDATE blocked_dates SET note = $2, updated_at = NOW() WHERE id = $1
		RETURNING `+blockColumns, id, note))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("blocked date")
		}
		return nil, apperr.Transient("update blocked date", err)
	}
	return b, nil
}

func (db *PostgresDatabase) DeleteBlock(ctx context.Context, id string) error {
	res, err := db.db.ExecContext(ctx, `DELETE FROM blocked_dates WHERE id = $1`, id)
	if err != nil {
		return apperr.Transient("delete blocked date", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("blocked date")
	}
	return nil
}

func (db *PostgresDatabase) GetBlockByDate(ctx context.Context, date models.Date) (*models.BlockedDate, error) {
	b, err := scanBlock(db.db.QueryRowContext(ctx,
		`SELECT `+blockColumns+` FROM blocked_dates WHERE date = $1`, date))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apperr.Transient("get blocked date", err)
	}
	return b, nil
}

func (db *PostgresDatabase) ListBlocks(ctx context.Context, start, end models.Date) ([]models.BlockedDate, error) {
	query := `SELECT ` + blockColumns + ` FROM blocked_dates WHERE 1 = 1`
	args := []interface{}{}
	if !start.IsZero() {
		args = append(args, start)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if !end.IsZero() {
		args = append(args, end)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date ASC"

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient("list blocked dates", err)
	}
	defer rows.Close()
	list := []models.BlockedDate{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, apperr.Transient("list blocked dates", err)
		}
		list = append(list, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("list blocked dates", err)
	}
	return list, nil
}

func (db *PostgresDatabase) PurgeBlockedAvailability(ctx context.Context) (int, error) {
	res, err := db.db.ExecContext(ctx, `
		DELETE FROM availability_days a USING blocked_dates b WHERE a.date = b.date
	`)
	if err != nil {
		return 0, apperr.Transient("purge blocked availability", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ================= Invitations =================

const invitationColumns = `id, email, token, status, expires_at, accepted_by, created_at`

func scanInvitation(row interface{ Scan(...interface{}) error }) (*models.Invitation, error) {
	var inv models.Invitation
	var status string
	var acceptedBy sql.NullString
	if err := row.Scan(&inv.ID, &inv.Email, &inv.Token, &status, &inv.ExpiresAt, &acceptedBy, &inv.CreatedAt); err != nil {
		return nil, err
	}
	inv.Status = models.InvitationStatus(status)
	if acceptedBy.Valid {
		inv.AcceptedBy = &acceptedBy.String
	}
	return &inv, nil
}

func (db *PostgresDatabase) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO invitations (id, email, token, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, inv.ID, normalizeEmail(inv.Email), inv.Token, string(inv.Status), inv.ExpiresAt, inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Concurrency(err)
		}
		return apperr.Transient("create invitation", err)
	}
	return nil
}

func (db *PostgresDatabase) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	inv, err := scanInvitation(db.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token = $1`, token))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("invitation")
		}
		return nil, apperr.Transient("get invitation", err)
	}
	return inv, nil
}

func (db *PostgresDatabase) ListInvitations(ctx context.Context) ([]models.Invitation, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperr.Transient("list invitations", err)
	}
	defer rows.Close()
	list := []models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, apperr.Transient("list invitations", err)
		}
		list = append(list, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("list invitations", err)
	}
	return list, nil
}

func (db *PostgresDatabase) DeleteInvitation(ctx context.Context, id string) error {
	res, err := db.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return apperr.Transient("delete invitation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("invitation")
	}
	return nil
}

// ConsumeInvitation 原子地接受邀请并创建艺人账号
func (db *PostgresDatabase) ConsumeInvitation(ctx context.Context, token string, now time.Time, user *models.User, profile *models.Artist) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		// compare-and-swap: only one caller flips sent -> accepted
		var invID string
		err := tx.QueryRowContext(ctx, `
			UPDATE invitations SET status = 'accepted'
			WHERE token = $1 AND status = 'sent' AND expires_at > $2
			RETURNING id
		`, token, now).Scan(&invID)
		if err == sql.ErrNoRows {
			return apperr.ErrInvalidToken
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, role, email, password_hash, timezone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, user.ID, string(user.Role), normalizeEmail(user.Email), user.Password, user.Timezone,
			user.CreatedAt, user.UpdatedAt); err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("an account with this email already exists")
			}
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO artist_profiles (user_id, stage_name, phone, link, category, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
		`, user.ID, profile.StageName, profile.Phone, profile.Link, string(profile.Category), user.CreatedAt); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `UPDATE invitations SET accepted_by = $2 WHERE id = $1`, invID, user.ID)
		return err
	})
	if err != nil {
		return apperr.Transient("consume invitation", err)
	}
	return nil
}

// ================= Health =================

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// Close 关闭数据库连接
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
