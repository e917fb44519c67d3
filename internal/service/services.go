package service

import (
	"net/http"

	"gorm.io/gorm"

	"wikit-semantics/internal/secret"
)

// Services 进程内共享的服务实例,配置缓存只有一份
type Services struct {
	Configs   *ConfigService
	Semantics *SemanticsService
	Tickets   *TicketService
	Answers   *AnswerService
	Profiles  *ProfileService
	Status    *StatusService
}

func NewServices(db *gorm.DB, box *secret.Box, client *http.Client) *Services {
	configs := NewConfigService(db, box)
	semantics := NewSemanticsService(configs, client)
	tickets := NewTicketService(db)
	return &Services{
		Configs:   configs,
		Semantics: semantics,
		Tickets:   tickets,
		Answers:   NewAnswerService(tickets, semantics),
		Profiles:  NewProfileService(db),
		Status:    NewStatusService(configs, tickets, semantics),
	}
}
