package service

import (
	"context"
	"errors"
	"html"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"wikit-semantics/internal/model"
	"wikit-semantics/internal/session"
)

// TicketService 宿主系统工单的只读访问
type TicketService struct {
	db *gorm.DB
}

func NewTicketService(db *gorm.DB) *TicketService {
	return &TicketService{db: db}
}

// ParseTicketID 校验工单ID为正整数
func ParseTicketID(raw string) (uint, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidTicketID
	}
	return uint(id), nil
}

func (s *TicketService) Find(ctx context.Context, id uint) (*model.Ticket, error) {
	var ticket model.Ticket
	err := s.db.WithContext(ctx).First(&ticket, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// CanView 申请人本人,或在同一实体内拥有查看全部工单权限
func (s *TicketService) CanView(sess *session.Session, ticket *model.Ticket) bool {
	if sess == nil || ticket == nil {
		return false
	}
	if ticket.RequesterID == sess.UserID {
		return true
	}
	return sess.HaveRight(model.RightNameTicket, model.RightReadAll) && ticket.EntityID == sess.EntityID
}

// Content 返回当前用户可见的工单正文(已解码HTML实体)
func (s *TicketService) Content(ctx context.Context, sess *session.Session, id uint) (string, error) {
	if id == 0 {
		return "", ErrInvalidTicketID
	}

	ticket, err := s.Find(ctx, id)
	if err != nil {
		return "", err
	}
	if !s.CanView(sess, ticket) {
		return "", ErrForbidden
	}

	content := DecodeContent(ticket.Content)
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	return content, nil
}

// DecodeContent 宿主系统入库时转义了HTML实体
func DecodeContent(raw string) string {
	return html.UnescapeString(raw)
}

// Count 工单总数
func (s *TicketService) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Ticket{}).Count(&n).Error
	return n, err
}

// Create 写入一条工单,用于开发环境造数据
func (s *TicketService) Create(ctx context.Context, ticket *model.Ticket) error {
	if strings.TrimSpace(ticket.Name) == "" {
		return errors.New("ticket name is required")
	}
	return s.db.WithContext(ctx).Create(ticket).Error
}
