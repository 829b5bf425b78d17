package mongo

import (
	"AIBoss/backend/go/internal/config"
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Open 连接 MongoDB 并返回配置中指定的数据库。
func Open(ctx context.Context, cfg *config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	// 应用连接URI。
	clientOptions := options.Client().ApplyURI(cfg.Address)
	// 如果配置了用户名和密码，则设置认证信息。
	if cfg.Username != "" && cfg.Password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("无法连接到 MongoDB: %w", err)
	}
	if err = c.Ping(ctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("无法 Ping MongoDB: %w", err)
	}

	log.Println("✅ 成功连接到 MongoDB!")
	return c, c.Database(cfg.Database), nil
}

// HealthCheck 返回检查 MongoDB 连接健康状况的函数。
func HealthCheck(client *mongo.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}
}
