package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/room-booking/internal/application"
)

var (
	errBadRequestBody    = errors.New("無効なリクエスト形式です。")
	errInvalidRequestID  = errors.New("無効な申請 ID です。")
	errMissingToken      = errors.New("認証トークンを指定してください")
	errInvalidToken      = errors.New("認証トークンが無効です。再度ログインしてください。")
	errRateLimited       = errors.New("リクエストが多すぎます。しばらくしてから再試行してください。")
	errUnknownCategory   = errors.New("不明な時限区分です。")
	errInvalidStatusList = errors.New("無効なステータスが指定されています。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(c *gin.Context, status int, payload any) {
	if status == http.StatusNoContent || payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

func (r responder) writeError(c *gin.Context, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(c).ErrorContext(c.Request.Context(), "request failed", "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Message: message})
}

func (r responder) handleServiceError(c *gin.Context, err error) {
	if err == nil {
		r.writeError(c, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		vErr     *application.ValidationError
		conflict *application.ConflictError
		state    *application.StateError
		store    *application.StoreError
	)

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(c, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "この操作を実行する権限がありません。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(c, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.Is(err, application.ErrBusy):
		r.writeJSON(c, http.StatusLocked, errorResponse{
			ErrorCode: "REQUEST_BUSY",
			Message:   "この申請は他の管理者が処理中です。",
		})
	case errors.Is(err, application.ErrConfirmationRequired):
		r.writeJSON(c, http.StatusPreconditionRequired, errorResponse{
			ErrorCode: "CONFIRMATION_REQUIRED",
			Message:   "取り消しを確認してください。",
		})
	case errors.As(err, &vErr):
		r.writeJSON(c, http.StatusUnprocessableEntity, errorResponse{
			Message: "入力内容に誤りがあります。",
			Errors:  localizeValidationErrors(vErr),
		})
	case errors.As(err, &conflict):
		r.writeJSON(c, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_CONFLICT",
			Message:   conflictMessage(conflict),
			Conflict:  newConflictDTO(conflict),
		})
	case errors.As(err, &state):
		r.writeJSON(c, http.StatusConflict, errorResponse{
			ErrorCode: "INVALID_STATE",
			Message:   "申請の状態が変更されています: " + string(state.Actual),
		})
	case errors.As(err, &store):
		r.loggerFor(c).ErrorContext(c.Request.Context(), "store failure", "error", err, "kind", store.Kind)
		r.writeJSON(c, http.StatusBadGateway, errorResponse{
			ErrorCode: "STORE_" + strings.ToUpper(string(store.Kind)),
			Message:   storeMessage(store.Kind),
		})
	default:
		r.loggerFor(c).ErrorContext(c.Request.Context(), "unexpected error", "error", err)
		r.writeJSON(c, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(c *gin.Context) *slog.Logger {
	if logger := LoggerFromContext(c.Request.Context()); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusMethodNotAllowed:
		return "許可されていないメソッドです。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusTooManyRequests:
		return errRateLimited.Error()
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func conflictMessage(c *application.ConflictError) string {
	label := c.SlotLabel
	if label == "" {
		label = c.Slot
	}
	if c.RequestID != "" {
		return "同じ時間帯に審査待ちの申請があります: " + c.Room + " " + c.Date + " " + label
	}
	return "すでに予約されている時間帯が含まれています: " + c.Room + " " + c.Date + " " + label
}

func storeMessage(kind application.StoreErrorKind) string {
	switch kind {
	case application.StoreRead:
		return "時間割の読み込みに失敗しました。"
	case application.StoreWrite:
		return "時間割の更新に失敗しました。変更は取り消されています。"
	case application.StoreStatus:
		return "申請状態の更新に失敗しました。"
	default:
		return "データストアでエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "room code is required":
		return "教室コードは必須です。"
	case "base date must be YYYY-MM-DD":
		return "開始日は YYYY-MM-DD 形式で指定してください。"
	case "date must be YYYY-MM-DD":
		return "日付は YYYY-MM-DD 形式で指定してください。"
	case "request id is required":
		return "申請 ID は必須です。"
	case "unknown slot category":
		return "不明な時限区分です。"
	case "status must be occupied, maintenance or empty":
		return "状態は occupied、maintenance、empty のいずれかを指定してください。"
	case "limit must not be negative":
		return "件数は 0 以上で指定してください。"
	default:
		if strings.HasPrefix(message, "week count must be between") {
			return "週数の指定が範囲外です。(" + strings.TrimPrefix(message, "week count must be ") + ")"
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflict  *conflictDTO      `json:"conflict,omitempty"`
}

type conflictDTO struct {
	Room      string `json:"room_code"`
	Date      string `json:"date"`
	Slot      string `json:"slot_hour"`
	SlotLabel string `json:"slot_label"`
	Status    string `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}

func newConflictDTO(c *application.ConflictError) *conflictDTO {
	return &conflictDTO{
		Room:      c.Room,
		Date:      c.Date,
		Slot:      c.Slot,
		SlotLabel: c.SlotLabel,
		Status:    c.Status,
		RequestID: c.RequestID,
	}
}
