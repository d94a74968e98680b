/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package registry answers which devices exist and who owns them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/carverauto/fieldradar/pkg/logger"
)

//go:generate mockgen -destination=mock_registry.go -package=registry github.com/carverauto/fieldradar/pkg/registry Registry

var (
	ErrUnknownDevice     = errors.New("unknown device")
	ErrUnsupportedDriver = errors.New("unsupported registry driver")
)

// Registry is the DeviceRegistry consumed by the dispatcher and notifications.
type Registry interface {
	IsKnown(ctx context.Context, deviceID string) (bool, error)
	OwnerOf(ctx context.Context, deviceID string) (string, error)
	Register(ctx context.Context, deviceID, ownerID string) error
}

// Device is the database model for a registered field device.
type Device struct {
	gorm.Model
	DeviceID string `gorm:"uniqueIndex"`
	OwnerID  string `gorm:"index"`
}

// ConnectorFunc is used to inject a database connection method into New.
type ConnectorFunc func() (*gorm.DB, error)

const (
	connectAttempts = 5
	connectBackoff  = 3 * time.Second
)

// NewPostgreSQLConnector opens a connection to a postgresql database, retrying a few times
// while the database comes up.
func NewPostgreSQLConnector(dsn string, log logger.Logger) ConnectorFunc {
	return func() (*gorm.DB, error) {
		var err error

		for attempt := 1; attempt <= connectAttempts; attempt++ {
			var db *gorm.DB

			log.Infof("Connecting to registry database (attempt %d) ...", attempt)

			db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
				Logger: gormlogger.Default.LogMode(gormlogger.Silent),
			})
			if err == nil {
				return db, nil
			}

			log.Warnf("Failed to connect to registry database: %v", err)
			time.Sleep(connectBackoff)
		}

		return nil, err
	}
}

// NewSQLiteConnector opens a sqlite database at dsn.
func NewSQLiteConnector(dsn string) ConnectorFunc {
	return func() (*gorm.DB, error) {
		db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err == nil {
			db.Exec("PRAGMA foreign_keys = ON")
		}

		return db, err
	}
}

// Connector picks a ConnectorFunc for the configured driver.
func Connector(driver, dsn string, log logger.Logger) (ConnectorFunc, error) {
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "file:registry.db"
		}

		return NewSQLiteConnector(dsn), nil
	case "postgres":
		return NewPostgreSQLConnector(dsn, log), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
}

type gormRegistry struct {
	impl *gorm.DB
	log  logger.Logger
}

// New connects and migrates the registry schema.
func New(connect ConnectorFunc, log logger.Logger) (Registry, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	if err := impl.AutoMigrate(&Device{}); err != nil {
		return nil, fmt.Errorf("failed to migrate registry: %w", err)
	}

	return &gormRegistry{impl: impl, log: log}, nil
}

func (r *gormRegistry) IsKnown(ctx context.Context, deviceID string) (bool, error) {
	var count int64

	result := r.impl.WithContext(ctx).Model(&Device{}).Where("device_id = ?", deviceID).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}

func (r *gormRegistry) OwnerOf(ctx context.Context, deviceID string) (string, error) {
	device := Device{}

	result := r.impl.WithContext(ctx).Where("device_id = ?", deviceID).First(&device)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}

	if result.Error != nil {
		return "", result.Error
	}

	return device.OwnerID, nil
}

// Register creates the device or reassigns its owner.
func (r *gormRegistry) Register(ctx context.Context, deviceID, ownerID string) error {
	device := Device{}

	result := r.impl.WithContext(ctx).Where("device_id = ?", deviceID).First(&device)
	if result.RowsAffected == 0 {
		r.log.Infof("Device %s not found in registry. Creating ...", deviceID)

		device.DeviceID = deviceID
		device.OwnerID = ownerID

		return r.impl.WithContext(ctx).Create(&device).Error
	}

	return r.impl.WithContext(ctx).Model(&device).Update("owner_id", ownerID).Error
}
