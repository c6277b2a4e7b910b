package domain

import "time"

// Attachment uploaded file metadata, object lives in minio
type Attachment struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChatID      string    `gorm:"type:varchar(36);index;not null" json:"chat_id"`
	UploaderID  string    `gorm:"type:varchar(64);not null" json:"uploader_id"`
	ObjectKey   string    `gorm:"type:text;not null" json:"-"`
	FileName    string    `gorm:"type:text;not null" json:"file_name"`
	ContentType string    `gorm:"type:varchar(255)" json:"content_type"`
	Size        int64     `gorm:"not null" json:"size"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName gorm table name
func (Attachment) TableName() string {
	return "attachments"
}

// FileInfo pointer stored on the message
func (a *Attachment) FileInfo() *FileInfo {
	return &FileInfo{
		AttachmentID: a.ID,
		Name:         a.FileName,
		Size:         a.Size,
		ContentType:  a.ContentType,
		ObjectKey:    a.ObjectKey,
	}
}
