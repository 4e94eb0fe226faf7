package scoring

import (
	"strings"

	"plugscan/internal/textutil"
)

// explicitDisclosurePatterns are phrases that legally or conventionally
// disclose a paid placement. Any hit is a near-certain signal.
var explicitDisclosurePatterns = []string{
	// Korean
	"유료 광고",
	"유료광고",
	"광고입니다",
	"광고를 포함",
	"협찬받", // 협찬받은, 협찬받아
	"협찬을 받",
	"제작비를 지원받",
	"#광고",
	"#협찬",
	// English
	"paid partnership",
	"paid promotion",
	"sponsored by",
	"this video is sponsored",
	"#ad",
	"#sponsored",
	"in partnership with",
}

// implicitCommercePatterns are phrases that accompany commercial intent
// without disclosing it: codes, links, purchase directions.
var implicitCommercePatterns = []string{
	// Korean
	"할인 코드",
	"할인코드",
	"쿠폰 코드",
	"쿠폰코드",
	"제 코드",
	"링크는 설명란",
	"설명란에 링크",
	"더보기란에",
	"공동구매",
	"공구 진행",
	"제휴 링크",
	"최저가",
	// English
	"discount code",
	"promo code",
	"coupon code",
	"use my code",
	"link in the description",
	"link in description",
	"link below",
	"affiliate link",
	"swipe up",
	"limited time offer",
}

// ExplicitSignal reports disclosure strength in [0,1]. Disclosure language
// is binary in practice: either the speaker says it is an ad or they do not.
func ExplicitSignal(text string) float64 {
	normalized := textutil.Normalize(text)
	for _, pattern := range explicitDisclosurePatterns {
		if strings.Contains(normalized, textutil.Normalize(pattern)) {
			return 1
		}
	}
	return 0
}

// ImplicitSignal reports commercial-language strength in [0,1]. One hit is
// suggestive, three or more reads like an ad script.
func ImplicitSignal(text string) float64 {
	normalized := textutil.Normalize(text)
	hits := 0
	for _, pattern := range implicitCommercePatterns {
		if strings.Contains(normalized, textutil.Normalize(pattern)) {
			hits++
		}
	}
	signal := float64(hits) / 3.0
	if signal > 1 {
		return 1
	}
	return signal
}
