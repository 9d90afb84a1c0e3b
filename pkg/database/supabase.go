package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/models"
)

// SupabaseDatabase Supabase数据库实现
//
// PostgREST has no multi-statement transactions. Multi-step writes run as
// compensating sequences; anything a failed compensation leaves behind
// (availability on a blocked date) is removed by the consistency sweeper.
type SupabaseDatabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabaseDatabase 创建Supabase数据库实例
func NewSupabaseDatabase(baseURL, key string) *SupabaseDatabase {
	// 确保URL格式正确
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "https://" + baseURL
	}

	return &SupabaseDatabase{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  key,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// restError 是 PostgREST 返回的错误
type restError struct {
	Status int
	Code   string `json:"code"`
	Msg    string `json:"message"`
	Body   string
}

func (e *restError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.Status, e.Body)
}

func isRestCode(err error, code string) bool {
	var re *restError
	return errors.As(err, &re) && re.Code == code
}

// makeRequest 发送HTTP请求到Supabase（支持自定义头）
func (db *SupabaseDatabase) makeRequest(ctx context.Context, method, endpoint string, body interface{}, customHeaders map[string]string) ([]byte, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, db.baseURL+"/rest/v1"+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// 设置默认请求头
	req.Header.Set("apikey", db.apiKey)
	req.Header.Set("Authorization", "Bearer "+db.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	// 设置自定义请求头
	for key, value := range customHeaders {
		req.Header.Set(key, value)
	}

	resp, err := db.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		re := &restError{Status: resp.StatusCode, Body: string(respBody)}
		_ = json.Unmarshal(respBody, re)
		return nil, re
	}

	return respBody, nil
}

// fetch 执行请求并把结果数组解码到 out
func (db *SupabaseDatabase) fetch(ctx context.Context, method, endpoint string, body, out interface{}) error {
	data, err := db.makeRequest(ctx, method, endpoint, body, nil)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func eq(v string) string { return "eq." + url.QueryEscape(v) }

// ================= Users =================

type supaUser struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Timezone     string    `json:"timezone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u supaUser) toModel() *models.User {
	return &models.User{
		ID:        u.ID,
		Role:      models.UserRole(u.Role),
		Email:     u.Email,
		Password:  u.PasswordHash,
		Timezone:  u.Timezone,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func userPayload(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":            u.ID,
		"role":          string(u.Role),
		"email":         normalizeEmail(u.Email),
		"password_hash": u.Password,
		"timezone":      u.Timezone,
		"created_at":    u.CreatedAt,
		"updated_at":    u.UpdatedAt,
	}
}

// CreateUser 创建用户
func (db *SupabaseDatabase) CreateUser(ctx context.Context, user *models.User) error {
	if err := db.fetch(ctx, http.MethodPost, "/users", userPayload(user), nil); err != nil {
		if isUniqueViolation(err) || isRestCode(err, "23505") {
			return apperr.Conflict("an account with this email already exists")
		}
		return apperr.Transient("create user", err)
	}
	return nil
}

func (db *SupabaseDatabase) getUser(ctx context.Context, filter string) (*models.User, error) {
	var rows []supaUser
	if err := db.fetch(ctx, http.MethodGet, "/users?select=*&"+filter, nil, &rows); err != nil {
		return nil, apperr.Transient("get user", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("user")
	}
	return rows[0].toModel(), nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *SupabaseDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, "email="+eq(normalizeEmail(email)))
}

// GetUserByID 根据ID获取用户
func (db *SupabaseDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.getUser(ctx, "id="+eq(id))
}

// ================= Artists =================

type supaArtist struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Profile   *struct {
		StageName string    `json:"stage_name"`
		Phone     string    `json:"phone"`
		Link      string    `json:"link"`
		Category  string    `json:"category"`
		UpdatedAt time.Time `json:"updated_at"`
	} `json:"artist_profiles"`
}

func (r supaArtist) toModel() models.Artist {
	a := models.Artist{ID: r.ID, Email: r.Email, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	if p := r.Profile; p != nil {
		a.StageName, a.Phone, a.Link = p.StageName, p.Phone, p.Link
		a.Category = models.Category(p.Category)
		if p.UpdatedAt.After(a.UpdatedAt) {
			a.UpdatedAt = p.UpdatedAt
		}
	}
	return a
}

const artistSelectREST = "/users?select=id,email,created_at,updated_at,artist_profiles(stage_name,phone,link,category,updated_at)&role=eq.artist"

func (db *SupabaseDatabase) GetArtist(ctx context.Context, id string) (*models.Artist, error) {
	var rows []supaArtist
	if err := db.fetch(ctx, http.MethodGet, artistSelectREST+"&id="+eq(id), nil, &rows); err != nil {
		return nil, apperr.Transient("get artist", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("artist")
	}
	a := rows[0].toModel()
	return &a, nil
}

func (db *SupabaseDatabase) ListArtists(ctx context.Context) ([]models.Artist, error) {
	var rows []supaArtist
	if err := db.fetch(ctx, http.MethodGet, artistSelectREST+"&order=created_at.asc", nil, &rows); err != nil {
		return nil, apperr.Transient("list artists", err)
	}
	out := make([]models.Artist, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// upsertProfile 以 user_id 为冲突键合并写入资料
func (db *SupabaseDatabase) upsertProfile(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["user_id"] = id
	fields["updated_at"] = time.Now().UTC()
	_, err := db.makeRequest(ctx, http.MethodPost, "/artist_profiles?on_conflict=user_id", fields,
		map[string]string{"Prefer": "resolution=merge-duplicates,return=representation"})
	return err
}

func (db *SupabaseDatabase) UpdateArtistProfile(ctx context.Context, id string, req models.ArtistProfileRequest) (*models.Artist, error) {
	if _, err := db.GetArtist(ctx, id); err != nil {
		return nil, err
	}
	err := db.upsertProfile(ctx, id, map[string]interface{}{
		"stage_name": req.StageName,
		"phone":      req.Phone,
		"link":       req.Link,
	})
	if err != nil {
		return nil, apperr.Transient("update profile", err)
	}
	return db.GetArtist(ctx, id)
}

func (db *SupabaseDatabase) SetArtistCategory(ctx context.Context, id string, category models.Category) (*models.Artist, error) {
	if _, err := db.GetArtist(ctx, id); err != nil {
		return nil, err
	}
	if err := db.upsertProfile(ctx, id, map[string]interface{}{"category": string(category)}); err != nil {
		return nil, apperr.Transient("set category", err)
	}
	return db.GetArtist(ctx, id)
}

// DeleteArtist 先删可用日再删账号；并发插入会因外键失败而报 NotFound
func (db *SupabaseDatabase) DeleteArtist(ctx context.Context, id string) (int, error) {
	if _, err := db.GetArtist(ctx, id); err != nil {
		return 0, err
	}
	var removed []models.AvailabilityDay
	if err := db.fetch(ctx, http.MethodDelete, "/availability_days?artist_id="+eq(id), nil, &removed); err != nil {
		return 0, apperr.Transient("delete artist availability", err)
	}
	// artist_profiles cascades on the foreign key
	if err := db.fetch(ctx, http.MethodDelete, "/users?id="+eq(id), nil, nil); err != nil {
		return 0, apperr.Transient("delete artist", err)
	}
	// rows a racing toggle slipped in between the two deletes cascade with the user
	return len(removed), nil
}

// ================= Availability =================

func (db *SupabaseDatabase) isBlocked(ctx context.Context, date models.Date) (bool, error) {
	b, err := db.GetBlockByDate(ctx, date)
	return b != nil, err
}

// ToggleAvailability 切换可用日（补偿式：插入后复查封锁状态）
func (db *SupabaseDatabase) ToggleAvailability(ctx context.Context, day *models.AvailabilityDay) (models.ToggleAction, *models.AvailabilityDay, error) {
	if _, err := db.GetArtist(ctx, day.ArtistID); err != nil {
		return "", nil, err
	}
	blocked, err := db.isBlocked(ctx, day.Date)
	if err != nil {
		return "", nil, err
	}
	if blocked {
		return "", nil, apperr.ErrDateBlocked
	}

	filter := "/availability_days?artist_id=" + eq(day.ArtistID) + "&date=" + eq(day.Date.String())
	var deleted []models.AvailabilityDay
	if err := db.fetch(ctx, http.MethodDelete, filter, nil, &deleted); err != nil {
		return "", nil, apperr.Transient("toggle availability", err)
	}
	if len(deleted) == 1 {
		return models.ToggleRemoved, &deleted[0], nil
	}

	var inserted []models.AvailabilityDay
	err = db.fetch(ctx, http.MethodPost, "/availability_days", map[string]interface{}{
		"id":         day.ID,
		"artist_id":  day.ArtistID,
		"date":       day.Date.String(),
		"note":       day.Note,
		"color":      day.Color,
		"created_at": day.CreatedAt,
	}, &inserted)
	switch {
	case err == nil:
	case isUniqueViolation(err) || isRestCode(err, "23505"):
		return "", nil, apperr.Concurrency(err)
	case isRestCode(err, "23503"):
		// artist deleted between the check and the insert
		return "", nil, apperr.NotFound("artist")
	default:
		return "", nil, apperr.Transient("toggle availability", err)
	}
	if len(inserted) == 0 {
		return "", nil, apperr.Transient("toggle availability", fmt.Errorf("insert returned no row"))
	}

	// 补偿：若插入期间日期被封锁，撤销本次插入
	blocked, err = db.isBlocked(ctx, day.Date)
	if err != nil {
		return "", nil, err
	}
	if blocked {
		if err := db.fetch(ctx, http.MethodDelete, "/availability_days?id="+eq(inserted[0].ID), nil, nil); err != nil {
			fmt.Printf("⚠️  compensation failed for availability %s, sweeper will repair: %v\n", inserted[0].ID, err)
		}
		return "", nil, apperr.ErrDateBlocked
	}
	return models.ToggleAdded, &inserted[0], nil
}

func (db *SupabaseDatabase) UpdateAvailabilityNote(ctx context.Context, artistID string, date models.Date, note, color string) (*models.AvailabilityDay, error) {
	var rows []models.AvailabilityDay
	filter := "/availability_days?artist_id=" + eq(artistID) + "&date=" + eq(date.String())
	if err := db.fetch(ctx, http.MethodPatch, filter, map[string]interface{}{"note": note, "color": color}, &rows); err != nil {
		return nil, apperr.Transient("update availability", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("availability")
	}
	return &rows[0], nil
}

func (db *SupabaseDatabase) ListAvailability(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilityDay, error) {
	q := url.Values{}
	q.Set("select", "*")
	if filter.ArtistID != "" {
		q.Set("artist_id", "eq."+filter.ArtistID)
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() {
		q.Set("and", fmt.Sprintf("(date.gte.%s,date.lte.%s)", filter.Start, filter.End))
	} else if !filter.Start.IsZero() {
		q.Set("date", "gte."+filter.Start.String())
	} else if !filter.End.IsZero() {
		q.Set("date", "lte."+filter.End.String())
	}

	var rows []models.AvailabilityDay
	if err := db.fetch(ctx, http.MethodGet, "/availability_days?"+q.Encode(), nil, &rows); err != nil {
		return nil, apperr.Transient("list availability", err)
	}

	artists, err := db.ListArtists(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Artist, len(artists))
	for _, a := range artists {
		byID[a.ID] = a
	}
	out := rows[:0]
	for _, d := range rows {
		a, ok := byID[d.ArtistID]
		if !ok {
			// artist deleted mid-read
			continue
		}
		d.ArtistName = a.DisplayName()
		d.Category = a.Category
		out = append(out, d)
	}
	sortAvailability(out)
	return out, nil
}

// ================= Blocked dates =================

// BlockDate 封锁日期后删除当日可用日；第二步失败时由清理任务兜底
func (db *SupabaseDatabase) BlockDate(ctx context.Context, block *models.BlockedDate) (*models.BlockedDate, bool, int, error) {
	existing, err := db.GetBlockByDate(ctx, block.Date)
	if err != nil {
		return nil, false, 0, err
	}

	var rows []models.BlockedDate
	created := existing == nil
	if created {
		err = db.fetch(ctx, http.MethodPost, "/blocked_dates", map[string]interface{}{
			"id":         block.ID,
			"date":       block.Date.String(),
			"note":       block.Note,
			"created_at": block.CreatedAt,
			"updated_at": block.UpdatedAt,
		}, &rows)
		if isUniqueViolation(err) || isRestCode(err, "23505") {
			// lost the insert race; fall through to the note update
			created, err = false, nil
		}
	}
	if err == nil && !created {
		err = db.fetch(ctx, http.MethodPatch, "/blocked_dates?date="+eq(block.Date.String()),
			map[string]interface{}{"note": block.Note, "updated_at": block.UpdatedAt}, &rows)
	}
	if err != nil {
		return nil, false, 0, apperr.Transient("block date", err)
	}
	if len(rows) == 0 {
		return nil, false, 0, apperr.Transient("block date", fmt.Errorf("upsert returned no row"))
	}

	var removed []models.AvailabilityDay
	if err := db.fetch(ctx, http.MethodDelete, "/availability_days?date="+eq(block.Date.String()), nil, &removed); err != nil {
		// the block stands; re-blocking or the sweeper finishes the cascade
		return nil, false, 0, apperr.Transient("cascade block", err)
	}
	return &rows[0], created, len(removed), nil
}

func (db *SupabaseDatabase) UpdateBlockNote(ctx context.Context, id, note string) (*models.BlockedDate, error) {
	var rows []models.BlockedDate
	err := db.fetch(ctx, http.MethodPatch, "/blocked_dates?id="+eq(id),
		map[string]interface{}{"note": note, "updated_at": time.Now().UTC()}, &rows)
	if err != nil {
		return nil, apperr.Transient("update blocked date", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("blocked date")
	}
	return &rows[0], nil
}

func (db *SupabaseDatabase) DeleteBlock(ctx context.Context, id string) error {
	var rows []models.BlockedDate
	if err := db.fetch(ctx, http.MethodDelete, "/blocked_dates?id="+eq(id), nil, &rows); err != nil {
		return apperr.Transient("delete blocked date", err)
	}
	if len(rows) == 0 {
		return apperr.NotFound("blocked date")
	}
	return nil
}

func (db *SupabaseDatabase) GetBlockByDate(ctx context.Context, date models.Date) (*models.BlockedDate, error) {
	var rows []models.BlockedDate
	if err := db.fetch(ctx, http.MethodGet, "/blocked_dates?select=*&date="+eq(date.String()), nil, &rows); err != nil {
		return nil, apperr.Transient("get blocked date", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (db *SupabaseDatabase) ListBlocks(ctx context.Context, start, end models.Date) ([]models.BlockedDate, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "date.asc")
	if !start.IsZero() && !end.IsZero() {
		q.Set("and", fmt.Sprintf("(date.gte.%s,date.lte.%s)", start, end))
	} else if !start.IsZero() {
		q.Set("date", "gte."+start.String())
	} else if !end.IsZero() {
		q.Set("date", "lte."+end.String())
	}
	rows := []models.BlockedDate{}
	if err := db.fetch(ctx, http.MethodGet, "/blocked_dates?"+q.Encode(), nil, &rows); err != nil {
		return nil, apperr.Transient("list blocked dates", err)
	}
	return rows, nil
}

// PurgeBlockedAvailability 按封锁日逐日删除残留可用日
func (db *SupabaseDatabase) PurgeBlockedAvailability(ctx context.Context) (int, error) {
	blocks, err := db.ListBlocks(ctx, models.Date{}, models.Date{})
	if err != nil {
		return 0, err
	}
	if len(blocks) == 0 {
		return 0, nil
	}
	dates := make([]string, 0, len(blocks))
	for _, b := range blocks {
		dates = append(dates, b.Date.String())
	}
	var removed []models.AvailabilityDay
	filter := "/availability_days?date=in.(" + strings.Join(dates, ",") + ")"
	if err := db.fetch(ctx, http.MethodDelete, filter, nil, &removed); err != nil {
		return 0, apperr.Transient("purge blocked availability", err)
	}
	return len(removed), nil
}

// ================= Invitations =================

func (db *SupabaseDatabase) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	err := db.fetch(ctx, http.MethodPost, "/invitations", map[string]interface{}{
		"id":         inv.ID,
		"email":      normalizeEmail(inv.Email),
		"token":      inv.Token,
		"status":     string(inv.Status),
		"expires_at": inv.ExpiresAt,
		"created_at": inv.CreatedAt,
	}, nil)
	if err != nil {
		if isUniqueViolation(err) || isRestCode(err, "23505") {
			return apperr.Concurrency(err)
		}
		return apperr.Transient("create invitation", err)
	}
	return nil
}

func (db *SupabaseDatabase) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var rows []models.Invitation
	if err := db.fetch(ctx, http.MethodGet, "/invitations?select=*&token="+eq(token), nil, &rows); err != nil {
		return nil, apperr.Transient("get invitation", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("invitation")
	}
	return &rows[0], nil
}

func (db *SupabaseDatabase) ListInvitations(ctx context.Context) ([]models.Invitation, error) {
	rows := []models.Invitation{}
	if err := db.fetch(ctx, http.MethodGet, "/invitations?select=*&order=created_at.desc", nil, &rows); err != nil {
		return nil, apperr.Transient("list invitations", err)
	}
	return rows, nil
}

func (db *SupabaseDatabase) DeleteInvitation(ctx context.Context, id string) error {
	var rows []models.Invitation
	if err := db.fetch(ctx, http.MethodDelete, "/invitations?id="+eq(id), nil, &rows); err != nil {
		return apperr.Transient("delete invitation", err)
	}
	if len(rows) == 0 {
		return apperr.NotFound("invitation")
	}
	return nil
}

// ConsumeInvitation 条件 PATCH 实现 CAS，后续步骤失败时回滚邀请状态
func (db *SupabaseDatabase) ConsumeInvitation(ctx context.Context, token string, now time.Time, user *models.User, profile *models.Artist) error {
	var claimed []models.Invitation
	filter := "/invitations?token=" + eq(token) + "&status=eq.sent&expires_at=gt." +
		url.QueryEscape(now.UTC().Format(time.RFC3339Nano))
	if err := db.fetch(ctx, http.MethodPatch, filter, map[string]interface{}{"status": string(models.InvitationAccepted)}, &claimed); err != nil {
		return apperr.Transient("consume invitation", err)
	}
	if len(claimed) == 0 {
		return apperr.ErrInvalidToken
	}
	invID := claimed[0].ID

	release := func(cause error) error {
		// background context: the compensation must run even if ctx is done
		rctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.fetch(rctx, http.MethodPatch, "/invitations?id="+eq(invID),
			map[string]interface{}{"status": string(models.InvitationSent)}, nil); err != nil {
			fmt.Printf("❌ failed to release invitation %s: %v\n", invID, err)
		}
		return cause
	}

	if err := db.fetch(ctx, http.MethodPost, "/users", userPayload(user), nil); err != nil {
		if isUniqueViolation(err) || isRestCode(err, "23505") {
			return release(apperr.Conflict("an account with this email already exists"))
		}
		return release(apperr.Transient("create user", err))
	}

	err := db.fetch(ctx, http.MethodPost, "/artist_profiles", map[string]interface{}{
		"user_id":    user.ID,
		"stage_name": profile.StageName,
		"phone":      profile.Phone,
		"link":       profile.Link,
		"category":   string(profile.Category),
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}, nil)
	if err != nil {
		rctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.fetch(rctx, http.MethodDelete, "/users?id="+eq(user.ID), nil, nil)
		return release(apperr.Transient("create profile", err))
	}

	if err := db.fetch(ctx, http.MethodPatch, "/invitations?id="+eq(invID),
		map[string]interface{}{"accepted_by": user.ID}, nil); err != nil {
		// the account exists; a missing accepted_by is cosmetic
		fmt.Printf("⚠️  failed to record accepted_by on invitation %s: %v\n", invID, err)
	}
	return nil
}

// ================= Health =================

// HealthCheck 健康检查
func (db *SupabaseDatabase) HealthCheck(ctx context.Context) error {
	_, err := db.makeRequest(ctx, http.MethodGet, "/users?select=id&limit=1", nil, nil)
	return err
}

// Close 关闭连接
func (db *SupabaseDatabase) Close() error {
	db.httpClient.CloseIdleConnections()
	return nil
}
