package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// CandidateRecord 候选人画像主表，按邮箱唯一
type CandidateRecord struct {
	CandidateEmail string         `gorm:"type:varchar(255);primaryKey"`
	Name           string         `gorm:"type:varchar(255)"`
	Phone          string         `gorm:"type:varchar(50);index:idx_cr_phone"`
	Industry       string         `gorm:"type:varchar(100);index:idx_cr_industry"`
	Namespace      string         `gorm:"type:varchar(100);not null;default:'resume';index:idx_cr_namespace"`
	ProfileJSON    datatypes.JSON `gorm:"type:json"`
	// 文本基础指标
	WordCount      int  `gorm:"type:int"`
	CharacterCount int  `gorm:"type:int"`
	HasEmail       bool `gorm:"default:false"`
	HasPhone       bool `gorm:"default:false"`
	// 最近一次写入向量索引的片段列表
	IndexedSectionsJSON datatypes.JSON `gorm:"type:json"`
	LastIndexedAt       *time.Time     `gorm:"type:datetime(6)"`
	CreatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (CandidateRecord) TableName() string {
	return "candidate_records"
}

// UploadRecord 原始文件上传记录表
type UploadRecord struct {
	UploadUUID       string     `gorm:"type:char(36);primaryKey"`
	CandidateEmail   *string    `gorm:"type:varchar(255);index:idx_ur_candidate_email"`
	OriginalFilename string     `gorm:"type:varchar(255)"`
	OriginalFileOSS  string     `gorm:"type:varchar(1024)"`
	FileMD5          string     `gorm:"type:char(32);index:idx_ur_file_md5"`
	Status           string     `gorm:"type:varchar(50);default:'PENDING';index:idx_ur_status"`
	ProcessedAt      *time.Time `gorm:"type:datetime(6)"`
	CreatedAt        time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Candidate *CandidateRecord `gorm:"foreignKey:CandidateEmail;references:CandidateEmail;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (UploadRecord) TableName() string {
	return "upload_records"
}

// 上传记录状态
const (
	UploadStatusPending   = "PENDING"
	UploadStatusIndexed   = "INDEXED"
	UploadStatusFailed    = "FAILED"
	UploadStatusDuplicate = "DUPLICATE"
)

// StringToJSON Helper function to convert string to datatypes.JSON
func StringToJSON(s string) datatypes.JSON {
	return datatypes.JSON(s)
}

// MapToJSON Helper function to convert map[string]interface{} to datatypes.JSON
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// ToJSON 将任意可序列化值转换为datatypes.JSON
func ToJSON(v interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
