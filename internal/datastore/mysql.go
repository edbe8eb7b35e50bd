package datastore

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/errors"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the MySQL database connection
func (store *MySQLStore) Open() error {
	dsn := store.Settings.Output.MySQL.DataDSN()

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", "mysql").
			Context("operation", "open").
			Build()
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "MySQL", store.Settings.Output.MySQL.Host)
}

// Close closes the MySQL database connection
func (store *MySQLStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
