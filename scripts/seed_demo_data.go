// Package main implements a standalone seed script that populates the
// voicedesk database with a demo account, a handful of AI agents and phone
// numbers, and a month of realistic call history so the dashboard has
// something to show out of the box.
//
// Run: go run scripts/seed_demo_data.go
//
//	(from the repo root, or: cd scripts && go run seed_demo_data.go)
package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const (
	totalCalls = 240
	historyDay = 24 * time.Hour
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// deterministicUUID produces a stable UUID-shaped string from a namespace and
// an integer index so that re-runs always produce the same row IDs.
func deterministicUUID(namespace string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", namespace, index)))
	hex := fmt.Sprintf("%x", h[:16])
	return fmt.Sprintf("%s-%s-4%s-%x%s-%s",
		hex[0:8],
		hex[8:12],
		hex[13:16],
		0x8|(h[8]&0x3),
		hex[17:20],
		hex[20:32],
	)
}

type agentDef struct {
	Name         string
	Industry     string
	Role         string
	Voice        string
	VoiceGender  string
	FirstMessage string
}

var agents = []agentDef{
	{"Riley", "dental", "receptionist", "nova", "female", "Thank you for calling Brightsmile Dental, this is Riley. How can I help?"},
	{"Marcus", "real-estate", "lead qualifier", "echo", "male", "Hi, this is Marcus from Hudson Realty. Do you have a minute?"},
	{"Ava", "hospitality", "booking assistant", "alloy", "neutral", "Hello! You've reached the Lakeside Inn reservations line."},
}

var endedReasons = []string{
	"customer-ended-call",
	"assistant-ended-call",
	"silence-timed-out",
	"customer-did-not-answer",
}

func main() {
	ctx := context.Background()

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("POSTGRES_USER", "voicedesk"),
		getEnv("POSTGRES_PASSWORD", "voicedesk_secret"),
		getEnv("POSTGRES_HOST", "localhost"),
		getEnv("POSTGRES_PORT", "5432"),
		getEnv("POSTGRES_DB", "voicedesk"),
		getEnv("POSTGRES_SSL_MODE", "disable"),
	)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	userID := deterministicUUID("demo-user", 0)
	if err := seedUser(ctx, pool, userID); err != nil {
		log.Fatalf("seed user: %v", err)
	}

	agentIDs, err := seedAgents(ctx, pool, userID)
	if err != nil {
		log.Fatalf("seed agents: %v", err)
	}

	phoneIDs, err := seedPhoneNumbers(ctx, pool, userID, agentIDs)
	if err != nil {
		log.Fatalf("seed phone numbers: %v", err)
	}

	n, err := seedCalls(ctx, pool, userID, agentIDs, phoneIDs)
	if err != nil {
		log.Fatalf("seed calls: %v", err)
	}

	log.Printf("seeded demo account demo@voicedesk.dev (password: demo-password) with %d agents, %d phone numbers, %d calls",
		len(agentIDs), len(phoneIDs), n)
}

func seedUser(ctx context.Context, pool *pgxpool.Pool, userID string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), 12)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, is_verified, created_at, updated_at)
		VALUES ($1, 'Demo User', 'demo@voicedesk.dev', $2, TRUE, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING`,
		userID, string(hash),
	)
	return err
}

func seedAgents(ctx context.Context, pool *pgxpool.Pool, userID string) ([]string, error) {
	ids := make([]string, 0, len(agents))
	for i, a := range agents {
		id := deterministicUUID("demo-agent", i)
		_, err := pool.Exec(ctx, `
			INSERT INTO agents (id, remote_id, user_id, name, industry, role, first_message,
				voice, voice_provider, voice_gender, model, model_provider, language, status,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'openai', $9, 'gpt-4o', 'openai', 'en-US', 'active',
				NOW() - INTERVAL '45 days', NOW())
			ON CONFLICT (id) DO NOTHING`,
			id, "demo-assistant-"+id[0:8], userID, a.Name, a.Industry, a.Role, a.FirstMessage,
			a.Voice, a.VoiceGender,
		)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedPhoneNumbers(ctx context.Context, pool *pgxpool.Pool, userID string, agentIDs []string) ([]string, error) {
	numbers := []struct {
		number   string
		name     string
		provider string
	}{
		{"+15550010001", "Front desk", "twilio"},
		{"+15550010002", "Outbound campaigns", "vapi"},
	}

	ids := make([]string, 0, len(numbers))
	for i, n := range numbers {
		id := deterministicUUID("demo-phone", i)
		_, err := pool.Exec(ctx, `
			INSERT INTO phone_numbers (id, remote_id, user_id, number, name, country, provider,
				agent_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'US', $6, $7, 'active',
				NOW() - INTERVAL '40 days', NOW())
			ON CONFLICT (id) DO NOTHING`,
			id, "demo-number-"+id[0:8], userID, n.number, n.name, n.provider, agentIDs[i%len(agentIDs)],
		)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedCalls(ctx context.Context, pool *pgxpool.Pool, userID string, agentIDs, phoneIDs []string) (int, error) {
	// Deterministic seed so re-runs produce identical history.
	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC()

	inserted := 0
	for i := 0; i < totalCalls; i++ {
		id := deterministicUUID("demo-call", i)
		remoteID := "demo-call-" + id[0:8]

		age := time.Duration(rng.Intn(30*24)) * time.Hour
		started := now.Add(-age)

		direction := "inbound"
		callType := "inboundPhoneCall"
		if rng.Float64() < 0.3 {
			direction = "outbound"
			callType = "outboundPhoneCall"
		}

		status := "ended"
		endedReason := endedReasons[rng.Intn(len(endedReasons))]
		var duration *int
		var endedAt *time.Time
		var recordingURL *string
		var transcript *string
		var cost *float64

		if endedReason == "customer-did-not-answer" {
			d := 0
			e := started
			duration, endedAt = &d, &e
		} else {
			d := 30 + rng.Intn(540)
			e := started.Add(time.Duration(d) * time.Second)
			c := float64(d) * 0.0018
			duration, endedAt, cost = &d, &e, &c
			if rng.Float64() < 0.7 {
				u := fmt.Sprintf("https://storage.vapi.ai/recordings/%s.wav", remoteID)
				recordingURL = &u
			}
			tr := "AI: Hello! How can I help you today?\nUser: Hi, I'd like to book an appointment."
			transcript = &tr
		}

		_, err := pool.Exec(ctx, `
			INSERT INTO calls (id, remote_id, user_id, agent_id, phone_number_id, phone_number,
				customer_number, direction, type, status, duration, cost, recording_url,
				transcript, ended_reason, started_at, ended_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			ON CONFLICT (remote_id) DO NOTHING`,
			id, remoteID, userID,
			agentIDs[rng.Intn(len(agentIDs))],
			phoneIDs[rng.Intn(len(phoneIDs))],
			"+15550010001",
			fmt.Sprintf("+1555%07d", rng.Intn(10000000)),
			direction, callType, status,
			duration, cost, recordingURL, transcript, endedReason,
			started, endedAt, started, now,
		)
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
