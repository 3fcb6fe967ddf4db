package features

// HighRiskCountrySetV1 is the frozen 58-jurisdiction set used by
// is_high_risk_country: FATF grey/black list entries, comprehensively
// sanctioned states, high-corruption jurisdictions, and AML-risky tax
// havens. Declared once as the single source of truth; Config may
// override it wholesale (never merge) via HIGH_RISK_COUNTRY_SET.
var HighRiskCountrySetV1 = map[string]struct{}{
	// FATF black list
	"KP": {}, "IR": {}, "MM": {},
	// FATF grey list (increased monitoring, 2024-class)
	"AL": {}, "BB": {}, "BF": {}, "KH": {}, "CM": {}, "HR": {}, "CD": {},
	"GI": {}, "HT": {}, "JM": {}, "KE": {}, "ML": {}, "MZ": {}, "NA": {},
	"NG": {}, "PH": {}, "SN": {}, "ZA": {}, "SS": {}, "SY": {}, "TZ": {},
	"TR": {}, "UG": {}, "AE": {}, "VN": {}, "YE": {}, "VU": {}, "VE": {},
	// comprehensively sanctioned
	"CU": {}, "SD": {}, "BY": {}, "RU": {}, "ZW": {},
	// high-corruption (CPI bottom decile, non-overlapping with above)
	"SO": {}, "AF": {}, "LY": {}, "GN": {}, "GW": {}, "TD": {}, "CF": {},
	"ER": {}, "TM": {}, "UZ": {}, "IQ": {}, "BI": {},
	// AML-risky secrecy/tax havens
	"PA": {}, "SC": {}, "MU": {}, "CY": {}, "MT": {}, "LI": {}, "MC": {},
	"AD": {}, "BZ": {}, "BS": {},
}

// Override builds a high-risk set from codes, for use in place of
// HighRiskCountrySetV1 (wholesale, never merged). Nothing in this module
// calls it: cmd/worker builds its HIGH_RISK_COUNTRY_SET override itself.
func Override(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}
