package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex inv_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateShortIDWithPrefix returns a short ID with a prefix.
// Total length is capped at 12 characters, e.g., `CN-XY12A8Q`.
func GenerateShortIDWithPrefix(prefix string) string {
	once.Do(initializeSID)

	id, err := sidGenerator.Generate()
	if err != nil {
		return ""
	}
	id = strings.ReplaceAll(id, "-", "")

	availableLen := 12 - len(prefix)
	if availableLen <= 0 {
		return ""
	}

	if len(id) > availableLen {
		id = id[:availableLen]
	}

	return strings.ToUpper(fmt.Sprintf("%s%s", prefix, id))
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_EVENT               = "event"
	UUID_PREFIX_DAILY_USAGE         = "du"
	UUID_PREFIX_METRIC              = "bm"
	UUID_PREFIX_METRIC_FILTER       = "bmf"
	UUID_PREFIX_PLAN                = "plan"
	UUID_PREFIX_CHARGE              = "chrg"
	UUID_PREFIX_CHARGE_FILTER       = "chrgf"
	UUID_PREFIX_INVOICE             = "inv"
	UUID_PREFIX_FEE                 = "fee"
	UUID_PREFIX_SUBSCRIPTION        = "subs"
	UUID_PREFIX_CUSTOMER            = "cust"
	UUID_PREFIX_WALLET              = "wallet"
	UUID_PREFIX_WALLET_TRANSACTION  = "wtxn"
	UUID_PREFIX_TENANT              = "tenant"
	UUID_PREFIX_COUPON              = "coup"
	UUID_PREFIX_APPLIED_COUPON      = "acoup"
	UUID_PREFIX_TAX                 = "tax"
	UUID_PREFIX_APPLIED_TAX         = "atax"
	UUID_PREFIX_CREDIT_NOTE         = "cn"
	UUID_PREFIX_CREDIT_NOTE_ITEM    = "cn_item"
	UUID_PREFIX_PAYMENT             = "pay"
	UUID_PREFIX_PAYMENT_REQUEST     = "payreq"
	UUID_PREFIX_SETTLEMENT          = "stl"
	UUID_PREFIX_DUNNING_CAMPAIGN    = "dun"
	UUID_PREFIX_USAGE_ALERT         = "alert"
	UUID_PREFIX_USAGE_ALERT_TRIGGER = "alertt"
	UUID_PREFIX_WEBHOOK_EVENT       = "webhook"
	UUID_PREFIX_WEBHOOK_ENDPOINT    = "whe"
	UUID_PREFIX_WEBHOOK_ATTEMPT     = "wha"
	UUID_PREFIX_API_KEY             = "bxb"
	UUID_PREFIX_TASK_LEASE          = "lease"
	UUID_PREFIX_COMMITMENT          = "cmt"
)

const (
	SHORT_ID_PREFIX_CREDIT_NOTE = "CN-"
)
