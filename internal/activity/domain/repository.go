package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, activity *Activity) error
	Update(ctx context.Context, db *gorm.DB, activity *Activity) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Activity, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Activity, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Activity, error)
}
