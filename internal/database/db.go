package database

import (
	"log"
	"os"
	"time"

	"risk-register/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(dsn string) {
	var err error

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		log.Printf("trying to connect to DB (attempt %d/%d)...", i, maxAttempts)

		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			log.Println("connected to DB successfully")
			break
		}

		log.Printf("failed to connect to DB: %v", err)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.Fatalf("failed to connect to db after %d attempts: %v", maxAttempts, err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// дефолтная организация и админ
	seedDefaults()
}

// Migrate — миграции схемы. Вынесено отдельно, чтобы тесты могли
// мигрировать собственное подключение.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.Risk{},
		&models.Cause{},
		&models.Impact{},
		&models.Control{},
		&models.RiskRootCause{},
		&models.RiskImpact{},
		&models.RiskControl{},
		&models.IndicatorDefinition{},
		&models.IndicatorAssignment{},
		&models.Breach{},
		&models.ToleranceLimit{},
		&models.RiskBreach{},
		&models.RiskHistory{},
		&models.PeriodCommit{},
		&models.AuditLog{},
	)
}

// админ и демо-организация только из кода/конфига
func seedDefaults() {
	var org models.Organization
	if err := DB.First(&org).Error; err != nil {
		now := time.Now()
		org = models.Organization{
			Name:          "Default Organization",
			ActiveYear:    now.Year(),
			ActiveQuarter: (int(now.Month())-1)/3 + 1,
		}
		if err := DB.Create(&org).Error; err != nil {
			log.Printf("failed to create default organization: %v", err)
			return
		}
		log.Printf("created default organization (id=%d)", org.ID)
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin@risk.local"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "Admin123!"
	}

	var count int64
	if err := DB.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		log.Printf("failed to check admin user: %v", err)
		return
	}
	if count > 0 {
		// админ уже есть — ничего не делаем
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("failed to hash default admin password: %v", err)
		return
	}

	admin := models.User{
		OrganizationID: org.ID,
		Username:       username,
		PasswordHash:   string(hash),
		Role:           models.RoleAdmin,
	}

	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("failed to create default admin: %v", err)
		return
	}

	log.Printf("created default admin user: %s", username)

	seedDemoUsers(org.ID)
}

// пара тестовых аккаунтов для демо (risk_manager и board)
func seedDemoUsers(orgID uint) {
	type seedUser struct {
		Username string
		Password string
		Role     models.UserRole
	}

	users := []seedUser{
		{
			Username: "rm@risk.local",
			Password: "Manager123!",
			Role:     models.RoleRiskManager,
		},
		{
			Username: "board@risk.local",
			Password: "Board123!",
			Role:     models.RoleBoard,
		},
	}

	for _, u := range users {
		var count int64
		if err := DB.Model(&models.User{}).
			Where("username = ?", u.Username).
			Count(&count).Error; err != nil {
			log.Printf("failed to check seed user %s: %v", u.Username, err)
			continue
		}
		if count > 0 {
			// уже есть — пропускаем
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("failed to hash password for %s: %v", u.Username, err)
			continue
		}

		user := models.User{
			OrganizationID: orgID,
			Username:       u.Username,
			PasswordHash:   string(hash),
			Role:           u.Role,
		}

		if err := DB.Create(&user).Error; err != nil {
			log.Printf("failed to create seed user %s: %v", u.Username, err)
			continue
		}

		log.Printf("created seed user: %s (role=%s)", u.Username, u.Role)
	}
}
