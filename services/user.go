package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/LovationAdmin/feeding-api/models"
	"github.com/LovationAdmin/feeding-api/permissions"
	"github.com/LovationAdmin/feeding-api/utils"
	"github.com/LovationAdmin/feeding-api/validation"

	"github.com/lib/pq"
)

type UserService struct {
	db *sql.DB
}

func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// Roles returns the permission roles of an active user. Inactive or unknown
// users have none.
func (s *UserService) Roles(ctx context.Context, userID int64) ([]permissions.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.group_name
		FROM user_groups g
		INNER JOIN users u ON u.id = g.user_id
		WHERE g.user_id = $1 AND u.is_active
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup roles for user %d: %w", userID, err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return permissions.ParseRoles(groups), nil
}

func (s *UserService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.first_name, u.last_name, u.is_active, u.date_joined,
		       COALESCE(array_agg(g.group_name ORDER BY g.group_name) FILTER (WHERE g.group_name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_groups g ON g.user_id = u.id
		WHERE u.id = $1
		GROUP BY u.id
	`, userID).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.IsActive,
		&user.DateJoined,
		pq.Array(&user.Groups),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("User", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %d: %w", userID, err)
	}
	return &user, nil
}

// UpdateProfile applies the provided fields and returns the updated profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.User, error) {
	if err := validation.Check(req).Err(); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = COALESCE($1, email),
		    first_name = COALESCE($2, first_name),
		    last_name = COALESCE($3, last_name)
		WHERE id = $4
	`, req.Email, req.FirstName, req.LastName, userID)
	if err != nil {
		return nil, fmt.Errorf("update profile %d: %w", userID, err)
	}
	if err := requireAffected(res, "User", userID); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// ChangePassword replaces the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest) error {
	if err := validation.Check(req).Err(); err != nil {
		return err
	}

	var currentHash string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&currentHash)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("User", userID)
	}
	if err != nil {
		return fmt.Errorf("load password hash: %w", err)
	}

	if !utils.CheckPassword(req.CurrentPassword, currentHash) {
		return validation.Errors{"current_password": "Current password is incorrect."}
	}

	newHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, newHash, userID); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
