package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quizarena/quizarena/internal/auth"
	"github.com/quizarena/quizarena/internal/models"
)

const userColumns = `id, email, password, username,
       rating, points,
       ranked_correct, ranked_total, casual_correct, casual_total,
       solo_stage, solo_best,
       tokens, owned_items, equipped,
       inactivity_warnings, penalty_until`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Password, &u.Username,
		&u.Rating, &u.Points,
		&u.RankedCorrect, &u.RankedTotal, &u.CasualCorrect, &u.CasualTotal,
		&u.SoloStage, &u.SoloBest,
		&u.Tokens, &u.OwnedItems, &u.Equipped,
		&u.InactivityWarnings, &u.PenaltyUntil,
	)
	if err != nil {
		return nil, err
	}
	if u.SoloBest == nil {
		u.SoloBest = map[string]int{}
	}
	return &u, nil
}

func CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	hash, err := auth.CreateHash(user.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hash

	q := `INSERT INTO users (id, email, password, username)
	      VALUES ($1, $2, $3, $4)`

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, user.ID, user.Email, user.Password, user.Username)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(DB.QueryRow(ctx, q, email))
}

func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(DB.QueryRow(ctx, q, id))
}

func AuthenticateUser(ctx context.Context, email, password string) (string, error) {
	user, err := GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("user not found or db error: %w", err)
	}

	match, err := auth.ComparePasswordAndHash(password, user.Password)
	if err != nil || !match {
		return "", fmt.Errorf("invalid credentials")
	}

	token, err := auth.CreateJWT(user.ID.String())
	if err != nil {
		return "", fmt.Errorf("failed to create jwt: %w", err)
	}

	return token, nil
}
