package database

// schema creates the tables used by the service.  Uniqueness that must
// hold under concurrent requests is enforced here rather than in Go:
//
//   - resources.code is UNIQUE and codes are drawn from code_sequences
//     through an atomic upsert;
//   - parking_allocations exposes generated columns that are non-NULL only
//     while an allocation is active, each with a UNIQUE index, so a user or
//     a slot can hold at most one open allocation.
//
// Booking overlap cannot be expressed as a MySQL constraint; the booking
// repository serialises writers by locking the resource row instead.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		full_name     VARCHAR(100) NOT NULL,
		department    VARCHAR(100) NULL,
		role          ENUM('super_admin','admin','manager','team_lead','employee') NOT NULL,
		manager_type  ENUM('parking','desk_conference','cafeteria','it_support','attendance') NULL,
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_users_email (email),
		CONSTRAINT chk_users_manager_type CHECK ((role = 'manager') = (manager_type IS NOT NULL))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    CHAR(36)        NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY ix_refresh_tokens_user (user_id),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS code_sequences (
		kind       VARCHAR(32)     NOT NULL PRIMARY KEY,
		last_value BIGINT UNSIGNED NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS resources (
		id           CHAR(36)    NOT NULL PRIMARY KEY,
		kind         ENUM('desk','conference_room','parking_slot','cafeteria_table') NOT NULL,
		code         VARCHAR(16) NOT NULL,
		label        VARCHAR(50) NOT NULL,
		capacity     INT         NULL,
		notes        VARCHAR(500) NULL,
		parking_type ENUM('employee','visitor','reserved','handicapped') NULL,
		vehicle_type ENUM('car','bike','any') NULL,
		table_type   VARCHAR(30) NULL,
		is_active    TINYINT(1)  NOT NULL DEFAULT 1,
		created_by   CHAR(36)    NOT NULL,
		created_at   DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at   DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_resources_code (code),
		KEY ix_resources_kind_active (kind, is_active),
		CONSTRAINT chk_resources_capacity CHECK (capacity IS NULL OR capacity BETWEEN 1 AND 20)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id          CHAR(36)    NOT NULL PRIMARY KEY,
		resource_id CHAR(36)    NOT NULL,
		kind        ENUM('desk','conference_room','parking_slot','cafeteria_table') NOT NULL,
		user_id     CHAR(36)    NOT NULL,
		start_date  DATE        NOT NULL,
		end_date    DATE        NOT NULL,
		start_time  TIME        NULL,
		end_time    TIME        NULL,
		guest_count INT         NULL,
		purpose     VARCHAR(500) NULL,
		status      ENUM('pending','confirmed','rejected','cancelled') NOT NULL,
		decided_by  CHAR(36)    NULL,
		decided_at  DATETIME(6) NULL,
		created_at  DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at  DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		KEY ix_bookings_resource_dates (resource_id, status, start_date, end_date),
		KEY ix_bookings_user (user_id, created_at),
		CONSTRAINT fk_bookings_resource FOREIGN KEY (resource_id) REFERENCES resources (id) ON DELETE CASCADE,
		CONSTRAINT chk_bookings_dates CHECK (start_date <= end_date),
		CONSTRAINT chk_bookings_times CHECK (start_time IS NULL OR end_time IS NULL OR start_time < end_time)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS parking_allocations (
		id              CHAR(36)    NOT NULL PRIMARY KEY,
		slot_id         CHAR(36)    NOT NULL,
		user_id         CHAR(36)    NULL,
		visitor_name    VARCHAR(100) NULL,
		visitor_phone   VARCHAR(30) NULL,
		visitor_company VARCHAR(100) NULL,
		vehicle_number  VARCHAR(20) NULL,
		vehicle_type    ENUM('car','bike','any') NULL,
		notes           VARCHAR(500) NULL,
		entry_time      DATETIME(6) NOT NULL,
		exit_time       DATETIME(6) NULL,
		created_by      CHAR(36)    NOT NULL,
		created_at      DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at      DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		active_user_id  CHAR(36) AS (IF(exit_time IS NULL, user_id, NULL)) STORED,
		active_slot_id  CHAR(36) AS (IF(exit_time IS NULL, slot_id, NULL)) STORED,
		UNIQUE KEY uq_allocations_active_user (active_user_id),
		UNIQUE KEY uq_allocations_active_slot (active_slot_id),
		KEY ix_allocations_slot (slot_id),
		KEY ix_allocations_user (user_id),
		CONSTRAINT fk_allocations_slot FOREIGN KEY (slot_id) REFERENCES resources (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
