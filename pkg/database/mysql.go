package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/outreach-sequencer/environments"
	"github.com/onurcolak/outreach-sequencer/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

// The campaigns, leads and campaign_leads tables belong to the campaign and
// lead management subsystems; they are created here so the engine can run
// standalone.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS campaigns (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		sender_identity VARCHAR(255) NOT NULL DEFAULT '',
		offer VARCHAR(1024) NOT NULL DEFAULT '',
		calendar_url VARCHAR(512) NOT NULL DEFAULT '',
		published_at DATETIME(6) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS leads (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(32) NOT NULL DEFAULT '',
		company VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS campaign_leads (
		campaign_id BIGINT NOT NULL,
		lead_id BIGINT NOT NULL,
		PRIMARY KEY (campaign_id, lead_id),
		INDEX idx_campaign_leads_lead (lead_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS sequence_steps (
		campaign_id BIGINT NOT NULL,
		step_number INT NOT NULL,
		channel_type VARCHAR(16) NOT NULL,
		wait_seconds BIGINT NOT NULL DEFAULT 0,
		template_ref VARCHAR(255) NOT NULL,
		PRIMARY KEY (campaign_id, step_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS lead_step_progress (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		lead_id BIGINT NOT NULL,
		campaign_id BIGINT NOT NULL,
		step_number INT NOT NULL,
		status VARCHAR(16) NOT NULL,
		due_at DATETIME(6) NOT NULL,
		last_attempted_at DATETIME(6) NULL,
		attempts INT NOT NULL DEFAULT 0,
		claim_token CHAR(36) NULL,
		claimed_at DATETIME(6) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_progress_lead_step (lead_id, campaign_id, step_number),
		INDEX idx_progress_status_due (status, due_at),
		INDEX idx_progress_campaign_status (campaign_id, status),
		INDEX idx_progress_claimed_at (status, claimed_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS throttle_state (
		sender_identity VARCHAR(255) NOT NULL PRIMARY KEY,
		last_sent_at DATETIME(6) NULL,
		sent_today INT NOT NULL DEFAULT 0,
		sent_on VARCHAR(10) NULL,
		daily_cap INT NOT NULL,
		min_interval_seconds BIGINT NOT NULL DEFAULT 300
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

func RunMigrations(db *sqlx.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i+1, err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

// SeedTestData creates one demo campaign with a three step sequence and a
// handful of leads. It does not publish the campaign.
func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM campaigns")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d campaigns, skipping seed", count)
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(
		`INSERT INTO campaigns (name, sender_identity, offer, calendar_url)
		 VALUES (?, ?, ?, ?)`,
		"Q3 Outbound Demo", "outreach@example.com",
		"Free 30 minute pipeline audit", "https://cal.example.com/demo",
	)
	if err != nil {
		return fmt.Errorf("failed to seed campaign: %w", err)
	}

	campaignID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get campaign id: %w", err)
	}

	steps := []struct {
		channel string
		wait    int64
		ref     string
	}{
		{"call", 0, "tpl-intro-call"},
		{"sms", 3600, "tpl-followup-sms"},
		{"email", 7200, "tpl-case-study-email"},
	}

	for i, s := range steps {
		if _, err := tx.Exec(
			"INSERT INTO sequence_steps (campaign_id, step_number, channel_type, wait_seconds, template_ref) VALUES (?, ?, ?, ?, ?)",
			campaignID, i+1, s.channel, s.wait, s.ref,
		); err != nil {
			return fmt.Errorf("failed to seed sequence step: %w", err)
		}
	}

	leads := []struct {
		first, last, email, phone, company string
	}{
		{"Ada", "Lovelace", "ada@analytical.example", "+15550100001", "Analytical Engines"},
		{"Grace", "Hopper", "grace@cobol.example", "+15550100002", "Compiler Works"},
		{"Alan", "Turing", "alan@bletchley.example", "+15550100003", "Enigma Labs"},
		{"Edsger", "Dijkstra", "edsger@paths.example", "+15550100004", "Shortest Path BV"},
		{"Barbara", "Liskov", "barbara@clu.example", "+15550100005", "Substitution Inc"},
	}

	for _, l := range leads {
		res, err := tx.Exec(
			"INSERT INTO leads (first_name, last_name, email, phone, company) VALUES (?, ?, ?, ?, ?)",
			l.first, l.last, l.email, l.phone, l.company,
		)
		if err != nil {
			return fmt.Errorf("failed to seed lead: %w", err)
		}

		leadID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get lead id: %w", err)
		}

		if _, err := tx.Exec(
			"INSERT INTO campaign_leads (campaign_id, lead_id) VALUES (?, ?)",
			campaignID, leadID,
		); err != nil {
			return fmt.Errorf("failed to seed campaign lead: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed data: %w", err)
	}

	logger.Infof("Seeded campaign %d with %d steps and %d leads", campaignID, len(steps), len(leads))
	return nil
}
