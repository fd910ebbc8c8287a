package service

import (
	"database/sql"
	"fmt"
	"maps"
	"strconv"

	"github.com/calm3366/bond-portfolio/internal/database"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db       *sql.DB
	features map[string]bool
}

// NewSystemService creates a new SystemService. features is reported as-is by CheckVersion.
func NewSystemService(db *sql.DB, features map[string]bool) *SystemService {
	return &SystemService{
		db:       db,
		features: features,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// CheckVersion reports the application and schema versions. MigrationNeeded is set
// when the database is behind the migrations embedded in the binary.
func (s *SystemService) CheckVersion() (model.VersionInfo, error) {
	current, err := database.Version(s.db)
	if err != nil {
		return model.VersionInfo{}, err
	}
	latest, err := database.LatestVersion()
	if err != nil {
		return model.VersionInfo{}, err
	}

	info := model.VersionInfo{
		AppVersion:      version.Version,
		DbVersion:       strconv.FormatInt(current, 10),
		LatestDbVersion: strconv.FormatInt(latest, 10),
		Features:        map[string]bool{},
	}
	maps.Copy(info.Features, s.features)

	if current < latest {
		msg := fmt.Sprintf("database schema is at version %d, latest is %d", current, latest)
		info.MigrationNeeded = true
		info.MigrationMessage = &msg
	}
	return info, nil
}
