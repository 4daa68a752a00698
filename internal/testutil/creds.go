package testutil

import "os"

const (
	TestEbayClientID  = "TEST_EBAY_CLIENT_ID"
	TestEtsyAPIKey    = "TEST_ETSY_API_KEY"
	TestDepopSeller   = "TEST_DEPOP_SELLER"
	DefaultTestToken  = "test-token"
	DefaultTestKey    = "test-key"
	DefaultTestHandle = "test-seller"
)

// GetTestCred returns a credential from the environment or the given
// default, so integration tests can run against real accounts when
// credentials are present and fall back to fixtures otherwise.
func GetTestCred(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}

// GetTestEbayClientID returns the eBay client id to test with.
func GetTestEbayClientID() string {
	return GetTestCred(TestEbayClientID, DefaultTestKey)
}

// GetTestEtsyAPIKey returns the Etsy api key to test with.
func GetTestEtsyAPIKey() string {
	return GetTestCred(TestEtsyAPIKey, DefaultTestKey)
}

// GetTestDepopSeller returns the Depop seller handle to test with.
func GetTestDepopSeller() string {
	return GetTestCred(TestDepopSeller, DefaultTestHandle)
}
