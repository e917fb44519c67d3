package service

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wikit-semantics/internal/model"
)

// RightDefinition 插件注册的权限
type RightDefinition struct {
	Field  string `json:"field"`
	Label  string `json:"label"`
	Rights int    `json:"rights"`
}

// AllRights 插件提供的全部权限
func AllRights() []RightDefinition {
	return []RightDefinition{
		{Field: model.RightNameAnswer, Label: "Semantic answers", Rights: model.RightRead},
		{Field: model.RightNameConfig, Label: "Semantic answers configuration", Rights: model.RightRead | model.RightUpdate},
	}
}

type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// Grant 设置profile的权限,已有记录时覆盖
func (s *ProfileService) Grant(ctx context.Context, profileID uint, name string, rights int) error {
	right := model.ProfileRight{ProfileID: profileID, Name: name, Rights: rights}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"rights"}),
	}).Create(&right).Error
}

// InitProfile 为所有已有profile补齐插件权限记录,默认无权限
func (s *ProfileService) InitProfile(ctx context.Context) error {
	var profileIDs []uint
	if err := s.db.WithContext(ctx).Model(&model.User{}).Distinct().Pluck("profile_id", &profileIDs).Error; err != nil {
		return err
	}
	for _, id := range profileIDs {
		for _, def := range AllRights() {
			right := model.ProfileRight{ProfileID: id, Name: def.Field}
			if err := s.db.WithContext(ctx).Where(right).FirstOrCreate(&right).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// CreateFirstAccess 给安装者的profile授予全部插件权限
func (s *ProfileService) CreateFirstAccess(ctx context.Context, profileID uint) error {
	for _, def := range AllRights() {
		if err := s.Grant(ctx, profileID, def.Field, def.Rights); err != nil {
			return err
		}
	}
	return nil
}

// Rights 读取profile的全部权限
func (s *ProfileService) Rights(ctx context.Context, profileID uint) (map[string]int, error) {
	var rows []model.ProfileRight
	if err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).Find(&rows).Error; err != nil {
		return nil, err
	}
	rights := make(map[string]int, len(rows))
	for _, r := range rows {
		rights[r.Name] = r.Rights
	}
	return rights, nil
}

// FindUser 按登录名查找用户,不存在时返回nil
func (s *ProfileService) FindUser(ctx context.Context, name string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureUser 按登录名创建或更新开发用户
func (s *ProfileService) EnsureUser(ctx context.Context, name string, profileID, entityID uint) (*model.User, error) {
	user := model.User{Name: name}
	err := s.db.WithContext(ctx).
		Where(model.User{Name: name}).
		Assign(model.User{ProfileID: profileID, EntityID: entityID}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
