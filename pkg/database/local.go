package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/models"
)

// LocalDatabase 本地文件数据库实现（SQLite + GORM）
//
// The pool holds a single connection, so every write transaction is
// serialized. That gives toggle and block the per-date ordering the
// Postgres store gets from advisory locks.
type LocalDatabase struct {
	db *gorm.DB
}

// 本地表结构。日期列保存为 YYYY-MM-DD 文本，可直接按字典序比较。
type userRow struct {
	ID           string `gorm:"primaryKey"`
	Role         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string
	Timezone     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

type profileRow struct {
	UserID    string `gorm:"primaryKey"`
	StageName string
	Phone     string
	Link      string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (profileRow) TableName() string { return "artist_profiles" }

type availabilityRow struct {
	ID        string `gorm:"primaryKey"`
	ArtistID  string `gorm:"not null;uniqueIndex:idx_availability_artist_date"`
	Date      string `gorm:"not null;uniqueIndex:idx_availability_artist_date;index"`
	Note      string
	Color     string
	CreatedAt time.Time
}

func (availabilityRow) TableName() string { return "availability_days" }

type blockRow struct {
	ID        string `gorm:"primaryKey"`
	Date      string `gorm:"not null;uniqueIndex"`
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (blockRow) TableName() string { return "blocked_dates" }

type invitationRow struct {
	ID         string `gorm:"primaryKey"`
	Email      string `gorm:"not null;index"`
	Token      string `gorm:"not null;uniqueIndex"`
	Status     string `gorm:"not null"`
	ExpiresAt  time.Time
	AcceptedBy *string
	CreatedAt  time.Time
}

func (invitationRow) TableName() string { return "invitations" }

// artistJoin is the users ⋈ artist_profiles projection.
type artistJoin struct {
	ID        string
	Email     string
	StageName string
	Phone     string
	Link      string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (j artistJoin) toModel() models.Artist {
	return models.Artist{
		ID:        j.ID,
		Email:     j.Email,
		StageName: j.StageName,
		Phone:     j.Phone,
		Link:      j.Link,
		Category:  models.Category(j.Category),
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// availabilityJoin is the availability_days ⋈ users ⋈ artist_profiles
// projection. Scan only fills exported fields, so the columns are spelled out
// instead of embedding availabilityRow.
type availabilityJoin struct {
	ID        string
	ArtistID  string
	Date      string
	Note      string
	Color     string
	CreatedAt time.Time
	Email     string
	StageName string
	Category  string
}

func (j availabilityJoin) toModel() models.AvailabilityDay {
	d := availabilityRow{
		ID:        j.ID,
		ArtistID:  j.ArtistID,
		Date:      j.Date,
		Note:      j.Note,
		Color:     j.Color,
		CreatedAt: j.CreatedAt,
	}.toModel()
	a := models.Artist{Email: j.Email, StageName: j.StageName}
	d.ArtistName = a.DisplayName()
	d.Category = models.Category(j.Category)
	return d
}

const availabilitySelect = "availability_days.id, availability_days.artist_id, availability_days.date, " +
	"availability_days.note, availability_days.color, availability_days.created_at, users.email AS email, " +
	"COALESCE(artist_profiles.stage_name, '') AS stage_name, COALESCE(artist_profiles.category, '') AS category"

// users.updated_at is touched on every profile write so it tracks the artist.
const artistSelect = "users.id, users.email, users.created_at, users.updated_at, " +
	"COALESCE(artist_profiles.stage_name, '') AS stage_name, COALESCE(artist_profiles.phone, '') AS phone, " +
	"COALESCE(artist_profiles.link, '') AS link, COALESCE(artist_profiles.category, '') AS category"

// NewLocalDatabase 创建本地数据库实例；path 为 ":memory:" 时使用内存数据库
func NewLocalDatabase(path string) (*LocalDatabase, error) {
	if path == "" {
		path = "./data/calendar.db"
	}
	if path != ":memory:" {
		// 在Vercel等只读文件系统中，使用临时目录
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			fmt.Printf("Warning: Failed to create data directory: %v\n", err)
			path = filepath.Join(os.TempDir(), "artist-calendar", filepath.Base(path))
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create temp data directory: %w", err)
			}
		}
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         newGormLogger(log.New(os.Stdout, "\r\n", log.LstdFlags)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// 单连接：串行化写事务，同时保证 :memory: 数据库不会随连接关闭而丢失
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(&userRow{}, &profileRow{}, &availabilityRow{}, &blockRow{}, &invitationRow{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &LocalDatabase{db: gdb}, nil
}

// newGormLogger 只输出警告与慢查询；toggle/block 的存在性查询会正常命中
// record not found，不记录
func newGormLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// ================= Users =================

// CreateUser 创建用户
func (db *LocalDatabase) CreateUser(ctx context.Context, user *models.User) error {
	row := userFromModel(user)
	if err := db.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("an account with this email already exists")
		}
		return apperr.Transient("create user", err)
	}
	return nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *LocalDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var row userRow
	err := db.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Transient("get user by email", err)
	}
	u := row.toModel()
	return &u, nil
}

// GetUserByID 根据ID获取用户
func (db *LocalDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var row userRow
	err := db.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Transient("get user", err)
	}
	u := row.toModel()
	return &u, nil
}

// ================= Artists =================

func artistQuery(tx *gorm.DB) *gorm.DB {
	return tx.Table("users").
		Select(artistSelect).
		Joins("LEFT JOIN artist_profiles ON artist_profiles.user_id = users.id").
		Where("users.role = ?", string(models.RoleArtist))
}

func (db *LocalDatabase) GetArtist(ctx context.Context, id string) (*models.Artist, error) {
	return getArtist(db.db.WithContext(ctx), id)
}

func getArtist(tx *gorm.DB, id string) (*models.Artist, error) {
	var rows []artistJoin
	if err := artistQuery(tx).Where("users.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, apperr.Transient("get artist", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("artist")
	}
	a := rows[0].toModel()
	return &a, nil
}

func (db *LocalDatabase) ListArtists(ctx context.Context) ([]models.Artist, error) {
	var rows []artistJoin
	if err := artistQuery(db.db.WithContext(ctx)).Order("users.created_at ASC").Scan(&rows).Error; err != nil {
		return nil, apperr.Transient("list artists", err)
	}
	out := make([]models.Artist, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (db *LocalDatabase) UpdateArtistProfile(ctx context.Context, id string, req models.ArtistProfileRequest) (*models.Artist, error) {
	var out *models.Artist
	err := db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getArtist(tx, id); err != nil {
			return err
		}
		now := time.Now().UTC()
		res := tx.Model(&profileRow{}).Where("user_id = ?", id).Updates(map[string]interface{}{
			"stage_name": req.StageName,
			"phone":      req.Phone,
			"link":       req.Link,
			"updated_at": now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			row := profileRow{UserID: id, StageName: req.StageName, Phone: req.Phone, Link: req.Link, CreatedAt: now, UpdatedAt: now}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&userRow{}).Where("id = ?", id).Update("updated_at", now).Error; err != nil {
			return err
		}
		a, err := getArtist(tx, id)
		out = a
		return err
	})
	if err != nil {
		return nil, apperr.Transient("update profile", err)
	}
	return out, nil
}

func (db *LocalDatabase) SetArtistCategory(ctx context.Context, id string, category models.Category) (*models.Artist, error) {
	var out *models.Artist
	err := db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getArtist(tx, id); err != nil {
			return err
		}
		now := time.Now().UTC()
		res := tx.Model(&profileRow{}).Where("user_id = ?", id).Updates(map[string]interface{}{
			"category":   string(category),
			"updated_at": now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			row := profileRow{UserID: id, Category: string(category), CreatedAt: now, UpdatedAt: now}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&userRow{}).Where("id = ?", id).Update("updated_at", now).Error; err != nil {
			return err
		}
		a, err := getArtist(tx, id)
		out = a
		return err
	})
	if err != nil {
		return nil, apperr.Transient("set category", err)
	}
	return out, nil
}

// DeleteArtist 删除艺人及其全部可用日（单事务）
func (db *LocalDatabase) DeleteArtist(ctx context.Context, id string) (int, error) {
	var removed int
	err := db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getArtist(tx, id); err != nil {
			return err
		}
		res := tx.Where("artist_id = ?", id).Delete(&availabilityRow{})
		if res.Error != nil {
			return res.Error
		}
		removed = int(res.RowsAffected)
		if err := tx.Where("user_id = ?", id).Delete(&profileRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&userRow{}).Error
	})
	if err != nil {
		return 0, apperr.Transient("delete artist", err)
	}
	return removed, nil
}

// ================= Availability =================

// ToggleAvailability 切换可用日（删除已存在的记录，否则插入）
func (db *LocalDatabase) ToggleAvailability(ctx context.Context, day *models.AvailabilityDay) (models.ToggleAction, *models.AvailabilityDay, error) {
	var (
		action models.ToggleAction
		out    models.AvailabilityDay
	)
	date := day.Date.String()

	err := db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getArtist(tx, day.ArtistID); err != nil {
			return err
		}
		var blocked int64
		if err := tx.Model(&blockRow{}).Where("date = ?", date).Count(&blocked).Error; err != nil {
			return err
		}
		if blocked > 0 {
			return apperr.ErrDateBlocked
		}

		var existing availabilityRow
		err := tx.Where("artist_id = ? AND date = ?", day.ArtistID, date).Take(&existing).Error
		switch {
		case err == nil:
			res := tx.Where("id = ?", existing.ID).Delete(&availabilityRow{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return apperr.Concurrency(fmt.Errorf("availability %s vanished during toggle", existing.ID))
			}
			action, out = models.ToggleRemoved, existing.toModel()
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := availabilityRow{
				ID:        day.ID,
				ArtistID:  day.ArtistID,
				Date:      date,
				Note:      day.Note,
				Color:     day.Color,
				CreatedAt: day.CreatedAt.UTC(),
			}
			if err := tx.Create(&row).Error; err != nil {
				if isUniqueViolation(err) {
					return apperr.Concurrency(err)
				}
				return err
			}
			action, out = models.ToggleAdded, row.toModel()
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return "", nil, apperr.Transient("toggle availability", err)
	}
	return action, &out, nil
}

// UpdateAvailabilityNote 更新已有可用日的备注与颜色
func (db *LocalDatabase) UpdateAvailabilityNote(ctx context.Context, artistID string, date models.Date, note, color string) (*models.AvailabilityDay, error) {
	var out models.AvailabilityDay
	err := db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row availabilityRow
		err := tx.Where("artist_id = ? AND date = ?", artistID, date.String()).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("availability")
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&availabilityRow{}).Where("id = ?", row.ID).
			Updates(map[string]interface{}{"note": note, "color": color}).Error; err != nil {
			return err
		}
		row.Note, row.Color = note, color
		out = row.toModel()
		return nil
	})
	if err != nil {
		return nil, apperr.Transient("update availability", err)
	}
	return &out, nil
}

// ListAvailability 按范围查询可用日，并关联艺人名称与分类
func (db *LocalDatabase) ListAvailability(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilityDay, error) {
	q := db.db.WithContext(ctx).Table("availability_days").
		Select(availabilitySelect).
		Joins("JOIN users ON users.id = availability_days.artist_id").
		Joins("LEFT JOIN artist_profiles ON artist_profiles.user_id = availability_days.artist_id")
	if filter.ArtistID != "" {
		q = q.Where("availability_days.artist_id = ?", filter.ArtistID)
	}
	if !filter.Start.IsZero() {
		q = q.Where("availability_days.date >= ?", filter.Start.String())
	}
	if !filter.End.IsZero() {
		q = q.Where("availability_days.date <= ?", filter.End.String())
	}

	var rows []availabilityJoin
	if err := q.Scan(&rows).Error; err != nil {
		return nil, apperr.Transient("list availability", err)
	}
	out := make([]models.AvailabilityDay, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	sortAvailability(out)
	return out, nil
}

// ================= Blocked dates =================

// BlockDate 封锁日期并级联删除当日全部可用日（单事务）
func (db *LocalDatabase) BlockDate(ctx context.Context, block *models.BlockedDate) (*models.BlockedDate, bool, int, error) {
	var (
		out     blockRow
		created bool
		removed int
	)
	date := block.Date.String()

	err := db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("date = ?", date).Take(&out).Error
		switch {
		case err == nil:
			out.Note = block.Note
			out.UpdatedAt = block.UpdatedAt.UTC()
			if err := tx.Model(&blockRow{}).Where("id = ?", out.ID).
				Updates(map[string]interface{}{"note": out.Note, "updated_at": out.UpdatedAt}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			out = blockRow{
				ID:        block.ID,
				Date:      date,
				Note:      block.Note,
				CreatedAt: block.CreatedAt.UTC(),
				UpdatedAt: block.UpdatedAt.UTC(),
			}
			if err := tx.Create(&out).Error; err != nil {
				if isUniqueViolation(err) {
					return apperr.Concurrency(err)
				}
				return err
			}
			created = true
		default:
			return err
		}

		res := tx.Where("date = ?", date).Delete(&availabilityRow{})
		if res.Error != nil {
			return res.Error
		}
		removed = int(res.RowsAffected)
		return nil
	})
	if err != nil {
		return nil, false, 0, apperr.Transient("block date", err)
	}
	b := out.toModel()
	return &b, created, removed, nil
}

func (db *LocalDatabase) UpdateBlockNote(ctx context.Context, id, note string) (*models.BlockedDate, error) {
	var out blockRow
	err := db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&out).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("blocked date")
			}
			return err
		}
		out.Note = note
		out.UpdatedAt = time.Now().UTC()
		return tx.Model(&blockRow{}).Where("id = ?", id).
			Updates(map[string]interface{}{"note": note, "updated_at": out.UpdatedAt}).Error
	})
	if err != nil {
		return nil, apperr.Transient("update blocked date", err)
	}
	b := out.toModel()
	return &b, nil
}

func (db *LocalDatabase) DeleteBlock(ctx context.Context, id string) error {
	res := db.db.WithContext(ctx).Where("id = ?", id).Delete(&blockRow{})
	if res.Error != nil {
		return apperr.Transient("delete blocked date", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("blocked date")
	}
	return nil
}

// GetBlockByDate returns nil without error when the date is not blocked.
func (db *LocalDatabase) GetBlockByDate(ctx context.Context, date models.Date) (*models.BlockedDate, error) {
	var rows []blockRow
	if err := db.db.WithContext(ctx).Where("date = ?", date.String()).Limit(1).Find(&rows).Error; err != nil {
		return nil, apperr.Transient("get blocked date", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	b := rows[0].toModel()
	return &b, nil
}

func (db *LocalDatabase) ListBlocks(ctx context.Context, start, end models.Date) ([]models.BlockedDate, error) {
	q := db.db.WithContext(ctx).Model(&blockRow{})
	if !start.IsZero() {
		q = q.Where("date >= ?", start.String())
	}
	if !end.IsZero() {
		q = q.Where("date <= ?", end.String())
	}
	var rows []blockRow
	if err := q.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, apperr.Transient("list blocked dates", err)
	}
	out := make([]models.BlockedDate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (db *LocalDatabase) PurgeBlockedAvailability(ctx context.Context) (int, error) {
	res := db.db.WithContext(ctx).
		Where("date IN (?)", db.db.Model(&blockRow{}).Select("date")).
		Delete(&availabilityRow{})
	if res.Error != nil {
		return 0, apperr.Transient("purge blocked availability", res.Error)
	}
	return int(res.RowsAffected), nil
}

// ================= Invitations =================

func (db *LocalDatabase) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	row := invitationFromModel(inv)
	if err := db.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.Concurrency(err)
		}
		return apperr.Transient("create invitation", err)
	}
	return nil
}

func (db *LocalDatabase) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var row invitationRow
	if err := db.db.WithContext(ctx).Where("token = ?", token).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("invitation")
		}
		return nil, apperr.Transient("get invitation", err)
	}
	inv := row.toModel()
	return &inv, nil
}

func (db *LocalDatabase) ListInvitations(ctx context.Context) ([]models.Invitation, error) {
	var rows []invitationRow
	if err := db.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, apperr.Transient("list invitations", err)
	}
	out := make([]models.Invitation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (db *LocalDatabase) DeleteInvitation(ctx context.Context, id string) error {
	res := db.db.WithContext(ctx).Where("id = ?", id).Delete(&invitationRow{})
	if res.Error != nil {
		return apperr.Transient("delete invitation", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("invitation")
	}
	return nil
}

// ConsumeInvitation 原子地接受邀请并创建艺人账号
func (db *LocalDatabase) ConsumeInvitation(ctx context.Context, token string, now time.Time, user *models.User, profile *models.Artist) error {
	err := db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv invitationRow
		if err := tx.Where("token = ?", token).Take(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrInvalidToken
			}
			return err
		}
		if model := inv.toModel(); !model.Usable(now) {
			return apperr.ErrInvalidToken
		}

		// compare-and-swap on the stored status
		res := tx.Model(&invitationRow{}).
			Where("token = ? AND status = ?", token, string(models.InvitationSent)).
			Updates(map[string]interface{}{"status": string(models.InvitationAccepted), "accepted_by": user.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.ErrInvalidToken
		}

		row := userFromModel(user)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("an account with this email already exists")
			}
			return err
		}
		p := profileRow{
			UserID:    user.ID,
			StageName: profile.StageName,
			Phone:     profile.Phone,
			Link:      profile.Link,
			Category:  string(profile.Category),
			CreatedAt: user.CreatedAt.UTC(),
			UpdatedAt: user.UpdatedAt.UTC(),
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		return apperr.Transient("consume invitation", err)
	}
	return nil
}

// ================= Health =================

func (db *LocalDatabase) HealthCheck(ctx context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *LocalDatabase) Close() error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ================= Row mapping =================

func userFromModel(u *models.User) userRow {
	return userRow{
		ID:           u.ID,
		Role:         string(u.Role),
		Email:        normalizeEmail(u.Email),
		PasswordHash: u.Password,
		Timezone:     u.Timezone,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func (r userRow) toModel() models.User {
	return models.User{
		ID:        r.ID,
		Role:      models.UserRole(r.Role),
		Email:     r.Email,
		Password:  r.PasswordHash,
		Timezone:  r.Timezone,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r availabilityRow) toModel() models.AvailabilityDay {
	d, _ := models.ParseDate(r.Date)
	return models.AvailabilityDay{
		ID:        r.ID,
		ArtistID:  r.ArtistID,
		Date:      d,
		Note:      r.Note,
		Color:     r.Color,
		CreatedAt: r.CreatedAt,
	}
}

func (r blockRow) toModel() models.BlockedDate {
	d, _ := models.ParseDate(r.Date)
	return models.BlockedDate{
		ID:        r.ID,
		Date:      d,
		Note:      r.Note,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func invitationFromModel(inv *models.Invitation) invitationRow {
	return invitationRow{
		ID:         inv.ID,
		Email:      normalizeEmail(inv.Email),
		Token:      inv.Token,
		Status:     string(inv.Status),
		ExpiresAt:  inv.ExpiresAt.UTC(),
		AcceptedBy: inv.AcceptedBy,
		CreatedAt:  inv.CreatedAt.UTC(),
	}
}

func (r invitationRow) toModel() models.Invitation {
	return models.Invitation{
		ID:         r.ID,
		Email:      r.Email,
		Token:      r.Token,
		Status:     models.InvitationStatus(r.Status),
		ExpiresAt:  r.ExpiresAt,
		AcceptedBy: r.AcceptedBy,
		CreatedAt:  r.CreatedAt,
	}
}
