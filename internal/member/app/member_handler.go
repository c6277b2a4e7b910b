package app

import (
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MemberHandler 处理用户相关的 HTTP 请求
type MemberHandler struct {
	Usecase MemberUseCase
}

// NewMemberHandler 创建新的 MemberHandler
func NewMemberHandler(usecase MemberUseCase) *MemberHandler {
	return &MemberHandler{Usecase: usecase}
}

// LoginReq 登入參數
type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register 注册新用户
// @Summary 注册新用户
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterReq true "注册请求"
// @Success 200 {object} AuthResult
// @Failure 400 {object} map[string]string
// @Router /api/auth/register [post]
func (h *MemberHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return middlewares.ErrorResponse(c, fiber.NewError(fiber.StatusBadRequest, "invalid request body"))
	}

	res, err := h.Usecase.Register(c.UserContext(), req)
	if err != nil {
		logger.Log.Debug("register failed", zap.String("nickname", req.Nickname), zap.Error(err))
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(res)
}

// Login 用户登录
// @Summary 用户登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginReq true "用户登录信息"
// @Success 200 {object} AuthResult
// @Failure 401 {object} map[string]string
// @Router /api/auth/login [post]
func (h *MemberHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return middlewares.ErrorResponse(c, fiber.NewError(fiber.StatusBadRequest, "invalid request body"))
	}

	res, err := h.Usecase.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(res)
}

// Logout 用户登出
// @Summary 用户登出
// @Tags Auth
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /api/auth/logout [post]
func (h *MemberHandler) Logout(c *fiber.Ctx) error {
	t, _ := c.Locals(middlewares.TokenRaw).(string)
	if err := h.Usecase.Logout(c.UserContext(), t); err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"status": "success"})
}

// Me 目前登入者資料
// @Summary 目前登入者資料
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.Member
// @Router /api/users/me [get]
func (h *MemberHandler) Me(c *fiber.Ctx) error {
	member, err := h.Usecase.FindMember(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(member)
}

// Search 搜尋使用者
// @Summary 搜尋使用者
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Param q query string true "keyword"
// @Success 200 {array} domain.Member
// @Router /api/users/search [get]
func (h *MemberHandler) Search(c *fiber.Ctx) error {
	members, err := h.Usecase.Search(c.UserContext(), c.Query("q"), middlewares.MemberID(c))
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(members)
}
