package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration (credentials and db index ride in the URL)
	REDIS_URL string
	// Payment gateway configuration
	PAYMOB_API_KEY        string
	PAYMOB_HMAC_SECRET    string
	PAYMOB_BASE_URL       string
	PAYMOB_INTEGRATION_ID string
	PAYMOB_IFRAME_ID      string
	GATEWAY_TIMEOUT_SECS  int
	// Audit archive (S3-compatible object storage)
	AUDIT_ACCESS_KEY string
	AUDIT_SECRET_KEY string
	AUDIT_BUCKET     string
	AUDIT_REGION     string
	AUDIT_ENDPOINT   string
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	gatewayTimeout, err := strconv.Atoi(os.Getenv("GATEWAY_TIMEOUT_SECONDS"))
	if err != nil || gatewayTimeout <= 0 {
		gatewayTimeout = 15
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	paymobBaseURL := os.Getenv("PAYMOB_BASE_URL")
	if paymobBaseURL == "" {
		paymobBaseURL = "https://accept.paymob.com"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: os.Getenv("JWT_ISSUER"),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// Gateway
		PAYMOB_API_KEY:        os.Getenv("PAYMOB_API_KEY"),
		PAYMOB_HMAC_SECRET:    os.Getenv("PAYMOB_HMAC_SECRET"),
		PAYMOB_BASE_URL:       paymobBaseURL,
		PAYMOB_INTEGRATION_ID: os.Getenv("PAYMOB_INTEGRATION_ID"),
		PAYMOB_IFRAME_ID:      os.Getenv("PAYMOB_IFRAME_ID"),
		GATEWAY_TIMEOUT_SECS:  gatewayTimeout,
		// Audit archive
		AUDIT_ACCESS_KEY: os.Getenv("AUDIT_ACCESS_KEY"),
		AUDIT_SECRET_KEY: os.Getenv("AUDIT_SECRET_KEY"),
		AUDIT_BUCKET:     os.Getenv("AUDIT_BUCKET"),
		AUDIT_REGION:     os.Getenv("AUDIT_REGION"),
		AUDIT_ENDPOINT:   os.Getenv("AUDIT_ENDPOINT"),
	}

	return envVariables, nil
}
