package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tomyedwab/asyncsql/gateway"
)

type tokenCmd struct {
	JWTSecret  string        `help:"Path to the JWT secret key, created if missing" name:"jwt-secret" required:""`
	Subject    string        `help:"Subject recorded in the token" default:"asyncsql"`
	Statements []string      `help:"Statements the token may execute, all when empty" name:"stmt"`
	TTL        time.Duration `help:"Token lifetime" default:"24h" name:"ttl"`
}

func (c *tokenCmd) Run(logger *zap.Logger) error {
	key, err := gateway.LoadSecretKey(c.JWTSecret)
	if err != nil {
		return err
	}
	token, err := gateway.IssueToken(key, c.Subject, c.Statements, c.TTL)
	if err != nil {
		return err
	}
	logger.Debug("Issued token", zap.String("subject", c.Subject), zap.Strings("statements", c.Statements),
		zap.Duration("ttl", c.TTL))
	fmt.Println(token)
	return nil
}
