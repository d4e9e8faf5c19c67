// Package http 转账服务 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/fundstransfer/internal/transfer/application"
	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
)

// Handler HTTP 接口处理器
type Handler struct {
	transferService *application.TransferService
	queryService    *application.QueryService
	apiKey          string
}

// NewHandler 创建 HTTP 处理器
func NewHandler(
	transferService *application.TransferService,
	queryService *application.QueryService,
	apiKey string,
) *Handler {
	return &Handler{
		transferService: transferService,
		queryService:    queryService,
		apiKey:          apiKey,
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/accounts/:id", h.GetAccount)
	r.GET("/accounts/:id/transfers", h.ListTransfers)
	r.GET("/transfers/:id", h.GetTransfer)

	guarded := r.Group("", h.requireAPIKey())
	{
		guarded.POST("/accounts", h.CreateAccount)
		guarded.POST("/transfers", h.CreateTransfer)
	}
}

// requireAPIKey 校验 X-API-Key，未配置 key 时放行
func (h *Handler) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-Key") != h.apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Invalid API key",
			})
			return
		}
		c.Next()
	}
}

// CreateAccountRequest 创建账户请求
type CreateAccountRequest struct {
	Owner    string `json:"owner" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	Balance  string `json:"balance"`
}

// CreateAccount 创建账户
func (h *Handler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance := decimal.Zero
	if req.Balance != "" {
		var err error
		balance, err = decimal.NewFromString(req.Balance)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "balance must be a decimal string"})
			return
		}
	}

	account, err := h.transferService.CreateAccount(c.Request.Context(), application.CreateAccountCommand{
		Owner:    req.Owner,
		Currency: req.Currency,
		Balance:  balance,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": accountResponse(account)})
}

// GetAccount 读取账户
func (h *Handler) GetAccount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	account, err := h.queryService.GetAccount(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": accountResponse(account)})
}

// CreateTransferRequest 转账请求
// 金额使用十进制字符串传输，保证精确往返
type CreateTransferRequest struct {
	FromAccountID uint   `json:"from_account_id" binding:"required"`
	ToAccountID   uint   `json:"to_account_id" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Currency      string `json:"currency" binding:"required"`
}

// CreateTransfer 发起转账
func (h *Handler) CreateTransfer(c *gin.Context) {
	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a decimal string"})
		return
	}

	transfer, err := h.transferService.Execute(c.Request.Context(), req.FromAccountID, req.ToAccountID, amount, req.Currency)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transfer": transferResponse(transfer)})
}

// GetTransfer 读取转账记录
func (h *Handler) GetTransfer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	transfer, err := h.queryService.GetTransfer(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transfer": transferResponse(transfer)})
}

// ListTransfers 列出账户相关转账
func (h *Handler) ListTransfers(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	transfers, total, err := h.queryService.ListTransfers(c.Request.Context(), id, limit, offset)
	if err != nil {
		h.renderError(c, err)
		return
	}

	items := make([]gin.H, len(transfers))
	for i, t := range transfers {
		items[i] = transferResponse(t)
	}

	c.JSON(http.StatusOK, gin.H{"transfers": items, "total": total})
}

// renderError 领域错误到 HTTP 状态码的映射
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidTransfer):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrTransferNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrCurrencyMismatch), errors.Is(err, domain.ErrInsufficientFunds):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrLockUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func accountResponse(a *domain.Account) gin.H {
	return gin.H{
		"id":       a.ID,
		"owner":    a.Owner,
		"balance":  a.Balance.StringFixed(2),
		"currency": a.Currency,
		"version":  a.Version,
	}
}

func transferResponse(t *domain.Transfer) gin.H {
	resp := gin.H{
		"id":              t.ID,
		"from_account_id": t.FromAccountID,
		"to_account_id":   t.ToAccountID,
		"amount":          t.Amount.StringFixed(2),
		"currency":        t.Currency,
		"status":          string(t.Status),
		"created_at":      t.CreatedAt.Format(time.RFC3339),
	}
	if t.Error != "" {
		resp["error"] = t.Error
	}
	if t.ProcessedAt != nil {
		resp["processed_at"] = t.ProcessedAt.Format(time.RFC3339)
	}
	return resp
}
