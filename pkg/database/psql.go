package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresDSN build postgres connect string
func PostgresDSN(host string, port int, user, password, database string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", user, password, host, port, database)
}

// NewDatabaseConnection pgx pool, 給 member 的手寫 SQL 使用
func NewDatabaseConnection(d Connection) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(d.ConnectStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	target := fmt.Sprintf("postgres[%s:%d]", dbConfig.ConnConfig.Host, dbConfig.ConnConfig.Port)

	var pool *pgxpool.Pool
	err = withRetry(target, d.RetryCount, d.RetryInterval, func() error {
		p, err := pgxpool.ConnectConfig(context.Background(), dbConfig)
		if err != nil {
			return err
		}
		if err := p.Ping(context.Background()); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	return pool, err
}

// NewGormConnection gorm 連線, 附件 metadata 使用
func NewGormConnection(d Connection) (*gorm.DB, error) {
	var db *gorm.DB
	err := withRetry("gorm postgres", d.RetryCount, d.RetryInterval, func() error {
		g, err := gorm.Open(postgres.Open(d.ConnectStr), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return err
		}
		sqlDB, err := g.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.Ping(); err != nil {
			_ = sqlDB.Close()
			return err
		}
		db = g
		return nil
	})
	return db, err
}
