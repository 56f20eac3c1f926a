package config

import "time"

func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8081,
			LoginPath: "/login",
			RateLimit: 1000,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Name:     "visitordesk_test",
			User:     "test_user",
			Password: "test_password",
			SSLMode:  "disable",
		},
		JWT: JWTConfig{
			Secret:     "test-secret",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		},
		Session: SessionConfig{
			ProfileTimeout: 200 * time.Millisecond,
			SettleTimeout:  time.Second,
			IdleTimeout:    time.Minute,
			SweepSpec:      "@every 1m",
			SignInLimit:    5,
			SignInWindow:   time.Minute,
		},
		Notify: NotifyConfig{
			Capacity:     100,
			StreamBuffer: 8,
			Heartbeat:    time.Second,
		},
	}
}
