package handlers

import (
	"net/http"
	"strconv"
	"time"

	"artist-calendar-backend/pkg/calendar"
	"artist-calendar-backend/pkg/consistency"
	"artist-calendar-backend/pkg/middleware"
	"artist-calendar-backend/pkg/models"
	"artist-calendar-backend/pkg/utils"
)

// currentUser 取出已认证用户，缺失时直接写 401
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, false
	}
	return user, true
}

// scopeFor 管理员看到全部艺人，艺人只看到自己
func scopeFor(user *models.User) calendar.Scope {
	if user.IsAdmin() {
		return calendar.AdminScope()
	}
	return calendar.ArtistScope(user.ID)
}

// settle 处理 ?consistent=true：等待写入窗口结束后再读；返回剩余的滞后时间
func settle(w http.ResponseWriter, r *http.Request, tracker consistency.Tracker, scopes ...consistency.Scope) (time.Duration, bool) {
	if consistent, _ := strconv.ParseBool(utils.GetQueryParam(r, "consistent", "false")); consistent {
		if err := consistency.WaitSettled(r.Context(), tracker, scopes...); err != nil {
			utils.WriteServiceUnavailableResponse(w, "Request cancelled while waiting for consistency", tracker.Window())
			return 0, false
		}
	}
	return tracker.Remaining(r.Context(), scopes...), true
}

// dateRange 读取 start_date / end_date；缺省时由服务层补默认窗口
func dateRange(r *http.Request) (string, string) {
	return utils.GetQueryParam(r, "start_date", ""), utils.GetQueryParam(r, "end_date", "")
}
