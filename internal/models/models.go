package models

import (
	"time"
)

type Image struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	StorageKey string `gorm:"type:varchar(512);not null;uniqueIndex"`
	Alt        string `gorm:"type:varchar(255)"`
	Width      int
	Height     int
	CreatedAt  time.Time
}

type Author struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"type:varchar(255);not null"`
	Slug      string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Bio       string `gorm:"type:text"`
	CreatedAt time.Time
}

type Blog struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Slug        string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Category    string    `gorm:"type:varchar(64);index"`
	Status      string    `gorm:"type:varchar(20);not null;default:draft;index"`
	Featured    bool      `gorm:"not null;default:false;index"`
	ImageID     *uint     `gorm:"index"`
	AuthorID    *uint     `gorm:"index"`
	PublishedAt time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Image        *Image            `gorm:"foreignKey:ImageID"`
	Author       *Author           `gorm:"foreignKey:AuthorID"`
	Translations []BlogTranslation `gorm:"foreignKey:BlogID"`
}

type BlogTranslation struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	BlogID   uint   `gorm:"not null;index:idx_blog_translation_lang,priority:1"`
	Language string `gorm:"type:varchar(8);not null;index:idx_blog_translation_lang,priority:2"`
	Title    string `gorm:"type:varchar(255);not null"`
	Excerpt  string `gorm:"type:text"`
	Content  string `gorm:"type:text"`
}

type Program struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Slug      string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Category  string `gorm:"type:varchar(64);index"`
	Status    string `gorm:"type:varchar(20);not null;default:draft;index"`
	ImageID   *uint  `gorm:"index"`
	SortOrder int    `gorm:"not null;default:0;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Image        *Image               `gorm:"foreignKey:ImageID"`
	Translations []ProgramTranslation `gorm:"foreignKey:ProgramID"`
	Gallery      []GalleryItem        `gorm:"foreignKey:ProgramID"`
}

type ProgramTranslation struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	ProgramID   uint   `gorm:"not null;index:idx_program_translation_lang,priority:1"`
	Language    string `gorm:"type:varchar(8);not null;index:idx_program_translation_lang,priority:2"`
	Title       string `gorm:"type:varchar(255);not null"`
	Summary     string `gorm:"type:text"`
	Description string `gorm:"type:text"`
}

type GalleryItem struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ProgramID uint   `gorm:"not null;index"`
	ImageID   uint   `gorm:"not null;index"`
	Caption   string `gorm:"type:varchar(255)"`
	Position  int    `gorm:"not null;default:0"`

	Image *Image `gorm:"foreignKey:ImageID"`
}

func (Blog) TableName() string {
	return "blogs"
}

func (BlogTranslation) TableName() string {
	return "blog_translations"
}

func (Program) TableName() string {
	return "programs"
}

func (ProgramTranslation) TableName() string {
	return "program_translations"
}

func (GalleryItem) TableName() string {
	return "program_gallery_items"
}
