package model

// ReputationStatus records why reputation fields may be absent.
type ReputationStatus string

// Reputation lookup statuses.
const (
	ReputationOK       ReputationStatus = "ok"
	ReputationNoAPIKey ReputationStatus = "no_api_key"
	ReputationNoData   ReputationStatus = "no_data"
	ReputationAPIError ReputationStatus = "api_error"
)

// ReputationProfile is the best-effort IP risk profile for one event. Nil
// pointers mean the provider did not supply the field.
type ReputationProfile struct {
	AbuseConfidenceScore *int             `json:"abuseConfidenceScore" bson:"abuseConfidenceScore"`
	IsProxy              *bool            `json:"isProxy" bson:"isProxy"`
	Country              *string          `json:"country" bson:"country"`
	ISP                  *string          `json:"isp,omitempty" bson:"isp,omitempty"`
	LastReportedAt       *string          `json:"lastReportedAt,omitempty" bson:"lastReportedAt,omitempty"`
	Status               ReputationStatus `json:"message" bson:"message"`
}

// NeutralReputation returns a profile with every scoring field absent.
func NeutralReputation(status ReputationStatus) ReputationProfile {
	return ReputationProfile{Status: status}
}

// Proxy reports whether the provider flagged the address as a proxy.
func (p ReputationProfile) Proxy() bool {
	return p.IsProxy != nil && *p.IsProxy
}

// CountryCode returns the resolved country or "".
func (p ReputationProfile) CountryCode() string {
	if p.Country == nil {
		return ""
	}
	return *p.Country
}
