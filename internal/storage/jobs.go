package storage

import (
	"errors"

	"autocut/internal/appcore"
	"autocut/internal/types"
	apperrors "autocut/pkg/errors"

	"gorm.io/gorm"
)

var errNoDB = apperrors.New(apperrors.CodeDBError, "database not initialized")

// SaveJob upserts by JobId. Clips are written separately with SaveClips.
func SaveJob(job *types.JobRecord) error {
	if DB == nil {
		return errNoDB
	}
	var existing types.JobRecord
	result := DB.Where("job_id = ?", job.JobId).First(&existing)

	if result.Error == nil {
		job.Id = existing.Id
		job.CreateTime = existing.CreateTime
		return DB.Omit("Clips").Save(job).Error
	} else if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return DB.Omit("Clips").Create(job).Error
	}
	return result.Error
}

func GetJob(jobId string) (*types.JobRecord, error) {
	if DB == nil {
		return nil, errNoDB
	}
	var job types.JobRecord
	err := DB.Preload("Clips", func(db *gorm.DB) *gorm.DB {
		return db.Order("clip_index asc")
	}).Where("job_id = ?", jobId).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapWithDetail(apperrors.CodeNotFound, "job not found", jobId, err)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func GetJobHistory(limit int) ([]types.JobRecord, error) {
	if DB == nil {
		return nil, errNoDB
	}
	if limit <= 0 {
		limit = 50
	}
	var jobs []types.JobRecord
	if err := DB.Order("create_time desc, id desc").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// DeleteJob removes the history row and its clips. The job directory on disk
// is left alone.
func DeleteJob(jobId string) error {
	if DB == nil {
		return errNoDB
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", jobId).Delete(&types.JobClip{}).Error; err != nil {
			return err
		}
		return tx.Where("job_id = ?", jobId).Delete(&types.JobRecord{}).Error
	})
}

// SaveClips replaces the clip rows of a job.
func SaveClips(jobId string, clips []types.JobClip) error {
	if DB == nil {
		return errNoDB
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", jobId).Delete(&types.JobClip{}).Error; err != nil {
			return err
		}
		if len(clips) == 0 {
			return nil
		}
		for i := range clips {
			clips[i].Id = 0
			clips[i].JobId = jobId
		}
		return tx.Create(&clips).Error
	})
}

// MarkStaleJobs fails every job still queued or running. Called on startup:
// no worker survives a restart.
func MarkStaleJobs() (int64, error) {
	if DB == nil {
		return 0, errNoDB
	}
	result := DB.Model(&types.JobRecord{}).
		Where("status IN ?", []int{int(appcore.JobStatusQueued), int(appcore.JobStatusRunning)}).
		Updates(map[string]interface{}{
			"status":      int(appcore.JobStatusFailed),
			"fail_reason": "服务重启，任务被中断 Job interrupted by restart",
			"status_msg":  "任务中断 Interrupted",
		})
	return result.RowsAffected, result.Error
}
