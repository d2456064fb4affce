package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
)

// positionShiftOffset keeps intermediate positions clear of the live 1..N
// range so the partial unique index on (course_id, position) never sees a
// duplicate mid-transaction.
const positionShiftOffset = 1 << 20

// CourseBlockRepository persists blocks and applies position changes
// atomically. The ordering decisions themselves (where to insert, how to
// renumber) are made by the block service; this layer only guarantees that a
// requested change lands all-or-nothing.
type CourseBlockRepository interface {
	Update(block *models.CourseBlock) error
	GetByID(id uint) (*models.CourseBlock, error)
	ListByCourse(courseID uint, includeDeleted bool) ([]models.CourseBlock, error)

	// CreateAt inserts a block at block.Position after shifting every live
	// block at or past that position up by one, in one transaction.
	CreateAt(block *models.CourseBlock) error
	// HardDelete removes a block and closes the gap it leaves.
	HardDelete(block *models.CourseBlock) error
	// SoftDeleteCascade marks a block and its nested content or assessment
	// (with questions) deleted, parks the block at position 0 and applies the
	// provided contiguous renumbering of the surviving blocks.
	SoftDeleteCascade(block *models.CourseBlock, positions map[uint]int) error
	// SetPositions assigns position = index+1 for each id, in one transaction.
	SetPositions(courseID uint, orderedIDs []uint) error
}

type courseBlockRepository struct {
	db *gorm.DB
}

func NewCourseBlockRepository(db *gorm.DB) CourseBlockRepository {
	return &courseBlockRepository{db: db}
}

func (r *courseBlockRepository) Update(block *models.CourseBlock) error {
	if r == nil || r.db == nil {
		return errors.New("course block repository is not initialised")
	}
	if block == nil {
		return errors.New("block is required")
	}
	return r.db.Save(block).Error
}

func (r *courseBlockRepository) GetByID(id uint) (*models.CourseBlock, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("course block repository is not initialised")
	}
	var block models.CourseBlock
	if err := r.db.First(&block, id).Error; err != nil {
		return nil, err
	}
	return &block, nil
}

func (r *courseBlockRepository) ListByCourse(courseID uint, includeDeleted bool) ([]models.CourseBlock, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("course block repository is not initialised")
	}
	var blocks []models.CourseBlock
	query := r.db.Where("course_id = ?", courseID)
	if !includeDeleted {
		query = query.Where("deleted = ?", false)
	}
	if err := query.Order("position ASC, id ASC").Find(&blocks).Error; err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *courseBlockRepository) CreateAt(block *models.CourseBlock) error {
	if r == nil || r.db == nil {
		return errors.New("course block repository is not initialised")
	}
	if block == nil {
		return errors.New("block is required")
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := shiftUpFrom(tx, block.CourseID, block.Position); err != nil {
			return err
		}
		return tx.Create(block).Error
	})
}

func (r *courseBlockRepository) HardDelete(block *models.CourseBlock) error {
	if r == nil || r.db == nil {
		return errors.New("course block repository is not initialised")
	}
	if block == nil {
		return errors.New("block is required")
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteNested(tx, block, false); err != nil {
			return err
		}
		if err := tx.Delete(&models.CourseBlock{}, block.ID).Error; err != nil {
			return err
		}
		return shiftDownAfter(tx, block.CourseID, block.Position)
	})
}

func (r *courseBlockRepository) SoftDeleteCascade(block *models.CourseBlock, positions map[uint]int) error {
	if r == nil || r.db == nil {
		return errors.New("course block repository is not initialised")
	}
	if block == nil {
		return errors.New("block is required")
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CourseBlock{}).
			Where("id = ?", block.ID).
			Updates(map[string]interface{}{"deleted": true, "position": 0}).Error; err != nil {
			return err
		}
		if err := deleteNested(tx, block, true); err != nil {
			return err
		}
		return applyPositions(tx, block.CourseID, positions)
	})
}

func (r *courseBlockRepository) SetPositions(courseID uint, orderedIDs []uint) error {
	if r == nil || r.db == nil {
		return errors.New("course block repository is not initialised")
	}
	positions := make(map[uint]int, len(orderedIDs))
	for index, id := range orderedIDs {
		positions[id] = index + 1
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return applyPositions(tx, courseID, positions)
	})
}

// shiftUpFrom moves every live block at or past from up by one. The shift
// runs in two passes through the offset range so no two rows ever share a
// position, even under a non-deferrable unique index.
func shiftUpFrom(tx *gorm.DB, courseID uint, from int) error {
	if err := tx.Model(&models.CourseBlock{}).
		Where("course_id = ? AND deleted = ? AND position >= ?", courseID, false, from).
		Update("position", gorm.Expr("position + ?", positionShiftOffset+1)).Error; err != nil {
		return err
	}
	return tx.Model(&models.CourseBlock{}).
		Where("course_id = ? AND position >= ?", courseID, positionShiftOffset).
		Update("position", gorm.Expr("position - ?", positionShiftOffset)).Error
}

func shiftDownAfter(tx *gorm.DB, courseID uint, after int) error {
	if err := tx.Model(&models.CourseBlock{}).
		Where("course_id = ? AND deleted = ? AND position > ?", courseID, false, after).
		Update("position", gorm.Expr("position + ?", positionShiftOffset-1)).Error; err != nil {
		return err
	}
	return tx.Model(&models.CourseBlock{}).
		Where("course_id = ? AND position >= ?", courseID, positionShiftOffset).
		Update("position", gorm.Expr("position - ?", positionShiftOffset)).Error
}

// applyPositions offsets all live blocks of the course out of the way, then
// writes the final assignment.
func applyPositions(tx *gorm.DB, courseID uint, positions map[uint]int) error {
	if len(positions) == 0 {
		return nil
	}
	if err := tx.Model(&models.CourseBlock{}).
		Where("course_id = ? AND deleted = ?", courseID, false).
		Update("position", gorm.Expr("position + ?", positionShiftOffset)).Error; err != nil {
		return err
	}
	for id, position := range positions {
		if err := tx.Model(&models.CourseBlock{}).
			Where("id = ? AND course_id = ?", id, courseID).
			Update("position", position).Error; err != nil {
			return err
		}
	}
	return nil
}

// deleteNested removes or soft-deletes the content unit or assessment (and
// question bank) owned by a block.
func deleteNested(tx *gorm.DB, block *models.CourseBlock, soft bool) error {
	switch block.Kind {
	case models.BlockKindContent:
		if soft {
			return tx.Model(&models.ContentUnit{}).
				Where("block_id = ?", block.ID).
				Update("deleted", true).Error
		}
		return tx.Where("block_id = ?", block.ID).Delete(&models.ContentUnit{}).Error
	case models.BlockKindAssessment:
		var assessment models.Assessment
		err := tx.Where("block_id = ?", block.ID).First(&assessment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if soft {
			if err := tx.Model(&models.Assessment{}).
				Where("id = ?", assessment.ID).
				Update("deleted", true).Error; err != nil {
				return err
			}
			return tx.Model(&models.Question{}).
				Where("assessment_id = ?", assessment.ID).
				Update("deleted", true).Error
		}
		if err := tx.Where("assessment_id = ?", assessment.ID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Assessment{}, assessment.ID).Error
	}
	return nil
}
