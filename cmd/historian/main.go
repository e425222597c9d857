// cmd/historian/main.go is an asynchronous historian service that pops match
// event data from a Redis queue and persists it to a PostgreSQL database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	_ "github.com/joho/godotenv/autoload"

	"github.com/quizarena/quizarena/internal/cache"
	"github.com/quizarena/quizarena/internal/database"
)

// HistorianService encapsulates the Redis + DB logic for capturing match
// events and marking matches abandoned after an inactivity threshold.
type HistorianService struct {
	redisClient *redis.Client
	batchSize   int
	flushDelay  time.Duration
	inactivity  time.Duration
	// lastActivity maps lobby id -> time of last observed event.
	lastActivity sync.Map

	batchMu  sync.Mutex
	batch    []cache.MatchEventRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewHistorianService constructs a HistorianService from environment
// variables or defaults.
func NewHistorianService() *HistorianService {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := getEnvInt("HISTORIAN_FLUSH_MS", 500)
	inactivitySec := getEnvInt("MATCH_INACTIVITY_TIMEOUT_SEC", 600)

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &HistorianService{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		inactivity:  time.Duration(inactivitySec) * time.Second,
		batch:       make([]cache.MatchEventRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run connects to the database and starts the queue drain and inactivity
// loops, blocking until cancelled.
func (hs *HistorianService) Run() {
	database.ConnectDB()

	go hs.readRedisLoop()
	go hs.inactivityLoop()

	log.Println("quizarena-historian service started.")
	<-hs.ctx.Done()
	hs.flushBatchToDB()
	log.Println("quizarena-historian shutting down.")
}

// readRedisLoop continuously uses BLPop to retrieve events from the queue.
func (hs *HistorianService) readRedisLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	queueName := getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			// BLPop with a short timeout so cancellation is handled.
			res, err := hs.redisClient.BLPop(hs.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				if hs.ctx.Err() != nil {
					return
				}
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var record cache.MatchEventRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid match event record: %v\n", err)
				continue
			}

			hs.lastActivity.Store(record.LobbyID, time.Now())
			hs.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record and flushes if the threshold is reached.
func (hs *HistorianService) appendToBatch(record cache.MatchEventRecord) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	hs.batch = append(hs.batch, record)
	if len(hs.batch) >= hs.batchSize {
		hs.flushBatchToDBLocked()
	}
}

// flushBatchToDB flushes the current batch in a single transaction.
func (hs *HistorianService) flushBatchToDB() {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	hs.flushBatchToDBLocked()
}

func (hs *HistorianService) flushBatchToDBLocked() {
	if len(hs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.MatchEventRecord, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := insertMatchEventTx(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flushBatchToDB: %v\n", err)
	} else {
		log.Printf("Flushed %d match events to DB.\n", len(batchCopy))
	}
}

// inactivityLoop periodically marks matches with no recent events as abandoned.
func (hs *HistorianService) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			hs.lastActivity.Range(func(key, val interface{}) bool {
				lobbyID, ok1 := key.(uuid.UUID)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > hs.inactivity {
					hs.markMatchAbandoned(lobbyID)
					hs.lastActivity.Delete(lobbyID)
				}
				return true
			})
		}
	}
}

// markMatchAbandoned marks a match abandoned if it was still in progress.
func (hs *HistorianService) markMatchAbandoned(lobbyID uuid.UUID) {
	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE matches
			SET status = 'abandoned', ended_at = NOW()
			WHERE lobby_id = $1 AND status = 'in_progress'
		`
		_, e := tx.Exec(ctx, q, lobbyID)
		return e
	})
	if err != nil {
		log.Printf("failed to mark match %v abandoned: %v", lobbyID, err)
	} else {
		log.Printf("Marked match %v as 'abandoned' due to inactivity.", lobbyID)
	}
}

// insertMatchEventTx appends one event row and keeps the parent match row
// in step: started events upsert it, ended events finalize it.
func insertMatchEventTx(ctx context.Context, tx pgx.Tx, rec cache.MatchEventRecord) error {
	upsertQ := `
		INSERT INTO matches (lobby_id, status, started_at)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (lobby_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertQ, rec.LobbyID); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.EventPayload)
	if err != nil {
		return err
	}

	insertQ := `
		INSERT INTO match_events (lobby_id, actor_user_id, event_type, event_payload, ts)
		VALUES ($1, $2, $3, $4, to_timestamp($5 / 1000.0))
	`
	if _, err := tx.Exec(ctx, insertQ,
		rec.LobbyID, rec.ActorUserID, rec.EventType, payload, rec.Timestamp,
	); err != nil {
		return err
	}

	if rec.EventType == "game_ended" {
		finalizeQ := `
			UPDATE matches
			SET status = 'completed', ended_at = NOW()
			WHERE lobby_id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.LobbyID); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	hs := NewHistorianService()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		hs.cancelFn()
	}()

	hs.Run()
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
