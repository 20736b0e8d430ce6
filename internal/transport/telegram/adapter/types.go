package adapter

import "time"

type Config struct {
	Token       string
	PollTimeout time.Duration // 0 means 10s
}
