// Package handler は運用管理APIのHTTPハンドラーを提供する。
// スケジューラの起動/停止、単発スイープ、通知ログの参照、一括エクスポートを公開する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/listingwatch/internal/model"
)

// defaultNotificationLimit は通知ログ一覧のデフォルト取得件数。
const defaultNotificationLimit = 50

// SweepController はスケジューラの制御インターフェース。
type SweepController interface {
	Start(interval time.Duration)
	Stop()
	IsRunning() bool
}

// SweepRunner は1回のスイープを実行するインターフェース。
type SweepRunner interface {
	RunOnce(ctx context.Context) error
}

// NotificationLister は通知ログの参照インターフェース。
type NotificationLister interface {
	ListRecent(ctx context.Context, limit int) ([]*model.NotificationLog, error)
}

// BulkExporter は一括エクスポートメールの送信インターフェース。
type BulkExporter interface {
	ExportAll(ctx context.Context, recipient, siteID string) error
}

// SiteFinder はサイトの参照インターフェース。
type SiteFinder interface {
	FindByID(ctx context.Context, id string) (*model.Site, error)
}

// AvailabilityChecker はサイトの応答可否確認インターフェース。
type AvailabilityChecker interface {
	CheckAvailable(ctx context.Context, site *model.Site) (bool, error)
}

// ConnectionTester はSMTPサーバーへの接続確認インターフェース。
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

// AdminHandler は運用管理APIのHTTPハンドラー。
type AdminHandler struct {
	scheduler     SweepController
	runner        SweepRunner
	notifications NotificationLister
	exporter      BulkExporter
	sites         SiteFinder
	checker       AvailabilityChecker
	mailer        ConnectionTester
	sweepInterval time.Duration
	logger        *slog.Logger
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(
	scheduler SweepController,
	runner SweepRunner,
	notifications NotificationLister,
	exporter BulkExporter,
	sites SiteFinder,
	checker AvailabilityChecker,
	mailer ConnectionTester,
	sweepInterval time.Duration,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		scheduler:     scheduler,
		runner:        runner,
		notifications: notifications,
		exporter:      exporter,
		sites:         sites,
		checker:       checker,
		mailer:        mailer,
		sweepInterval: sweepInterval,
		logger:        logger,
	}
}

// --- レスポンス型 ---

type schedulerStatusResponse struct {
	Running bool `json:"running"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type notificationResponse struct {
	ID           string    `json:"id"`
	RuleID       string    `json:"rule_id,omitempty"`
	ListingID    string    `json:"listing_id,omitempty"`
	ToEmail      string    `json:"to_email"`
	SentAt       time.Time `json:"sent_at"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

type exportRequest struct {
	Email  string `json:"email"`
	SiteID string `json:"site_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// SchedulerStatus はスケジューラの稼働状態を返す。
// GET /api/scheduler
func (h *AdminHandler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, schedulerStatusResponse{Running: h.scheduler.IsRunning()})
}

// StartScheduler は定期スイープを開始する。すでに稼働中の場合も200を返す。
// POST /api/scheduler/start
func (h *AdminHandler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Start(h.sweepInterval)
	writeJSON(w, http.StatusOK, schedulerStatusResponse{Running: h.scheduler.IsRunning()})
}

// StopScheduler は定期スイープを停止する。すでに停止中の場合も200を返す。
// POST /api/scheduler/stop
func (h *AdminHandler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	writeJSON(w, http.StatusOK, schedulerStatusResponse{Running: h.scheduler.IsRunning()})
}

// RunSweep は1回のスイープをバックグラウンドで起動する。
// 実行時間が長いためリクエスト内では待たず、202を返す。
// POST /api/sweep
func (h *AdminHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := h.runner.RunOnce(ctx); err != nil {
			h.logger.Error("単発スイープの実行に失敗しました", slog.String("error", err.Error()))
		}
	}()
	writeJSON(w, http.StatusAccepted, messageResponse{Message: "sweep started"})
}

// ListNotifications は直近の通知ログを返す。
// GET /api/notifications?limit=N
func (h *AdminHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultNotificationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limitは1〜500の整数で指定してください")
			return
		}
		limit = n
	}

	entries, err := h.notifications.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("通知ログの取得に失敗しました", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "通知ログの取得に失敗しました")
		return
	}

	out := make([]notificationResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, notificationResponse{
			ID:           e.ID,
			RuleID:       e.RuleID,
			ListingID:    e.ListingID,
			ToEmail:      e.ToEmail,
			SentAt:       e.SentAt,
			Status:       string(e.Status),
			ErrorMessage: e.ErrorMessage,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Export は全リスティングの一括エクスポートメールを送信する。
// POST /api/export {"email": "...", "site_id": "..."}
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "emailは必須です")
		return
	}

	if err := h.exporter.ExportAll(r.Context(), req.Email, req.SiteID); err != nil {
		h.logger.Error("一括エクスポートに失敗しました",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "エクスポートメールの送信に失敗しました")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "export sent"})
}

// TestSMTP は設定中のSMTPサーバーへの接続確認を行う。
// POST /api/smtp/test
func (h *AdminHandler) TestSMTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := h.mailer.TestConnection(ctx); err != nil {
		h.logger.Error("SMTP接続確認に失敗しました", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "SMTPサーバーに接続できません")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "smtp connection ok"})
}

// CheckSite はサイトの起点URLが応答可能かを確認する。
// GET /api/sites/{id}/check
func (h *AdminHandler) CheckSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "id")

	site, err := h.sites.FindByID(r.Context(), siteID)
	if err != nil {
		h.logger.Error("サイトの取得に失敗しました",
			slog.String("site_id", siteID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "サイトの取得に失敗しました")
		return
	}
	if site == nil {
		writeError(w, http.StatusNotFound, "サイトが見つかりません")
		return
	}

	available, err := h.checker.CheckAvailable(r.Context(), site)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}
