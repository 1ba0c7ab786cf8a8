package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/data/model"
)

type demoAccessRepo struct {
	data *Data
	log  *log.Helper
}

// NewDemoAccessRepo 创建试用访问仓库
func NewDemoAccessRepo(data *Data, logger log.Logger) biz.DemoAccessRepo {
	return &demoAccessRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// AddDemoAccess 追加一条试用访问记录
func (r *demoAccessRepo) AddDemoAccess(ctx context.Context, entry *biz.DemoAccessLog) error {
	m := &model.DemoAccessLog{
		UserID:             entry.UserID,
		ExamCategory:       entry.ExamCategory,
		QuestionsAttempted: entry.QuestionsAttempted,
		TimeSpentSec:       entry.TimeSpentSec,
		DeviceInfo:         entry.DeviceInfo,
		Completed:          entry.Completed,
		CreatedAt:          entry.CreatedAt,
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to add demo access for user %d: %v", entry.UserID, err)
		return err
	}
	entry.ID = m.ID
	return nil
}

// CountDemoQuestions 聚合用户在某分类下已消耗的试用题数
func (r *demoAccessRepo) CountDemoQuestions(ctx context.Context, userID uint64, examCategory string) (int, error) {
	var total int64
	query := r.data.DB(ctx).Model(&model.DemoAccessLog{}).Where("user_id = ?", userID)
	if examCategory != "" {
		query = query.Where("exam_category = ?", examCategory)
	}
	if err := query.Select("COALESCE(SUM(questions_attempted), 0)").Scan(&total).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to count demo questions for user %d: %v", userID, err)
		return 0, err
	}
	return int(total), nil
}
