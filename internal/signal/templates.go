package signal

import (
	"fmt"

	"github.com/pathwise/trendintel/internal/model"
)

type templateKey struct {
	lifecycle model.Lifecycle
	direction model.Direction
}

var suggestionTemplates = map[templateKey]string{
	{model.LifecycleSocialSpike, model.DirectionRising}:  "%q is spiking on social platforms. Publish short-form content now while attention is high.",
	{model.LifecycleSocialSpike, model.DirectionStable}:  "%q has social buzz without search follow-through yet. Test it with low-cost posts.",
	{model.LifecycleSocialSpike, model.DirectionFalling}: "%q was a social spike that is cooling. Only cover it if it fits your existing audience.",

	{model.LifecycleSearchIncrease, model.DirectionRising}:  "Search demand for %q is growing. Build evergreen content and capture it early.",
	{model.LifecycleSearchIncrease, model.DirectionStable}:  "%q has steady search growth. A solid candidate for a long-form guide.",
	{model.LifecycleSearchIncrease, model.DirectionFalling}: "%q grew over the month but slowed this week. Watch it before committing.",

	{model.LifecycleAffiliateFlood, model.DirectionRising}:  "Advertisers are piling into %q. Differentiate with honest reviews or comparisons.",
	{model.LifecycleAffiliateFlood, model.DirectionStable}:  "%q is crowded with affiliate offers. Look for an underserved sub-topic.",
	{model.LifecycleAffiliateFlood, model.DirectionFalling}: "Affiliate interest in %q is fading. Avoid new investment here.",

	{model.LifecycleSaturation, model.DirectionRising}:  "%q is saturated but still gaining interest. Win on quality or a unique angle.",
	{model.LifecycleSaturation, model.DirectionStable}:  "%q is a mature market. Compete only with a clear edge.",
	{model.LifecycleSaturation, model.DirectionFalling}: "%q is saturated and declining. Consider a different niche.",

	{model.LifecycleMarginCollapse, model.DirectionRising}:  "Margins on %q are thin despite renewed interest. Keep costs low.",
	{model.LifecycleMarginCollapse, model.DirectionStable}:  "Margins on %q have collapsed. Not recommended for new entrants.",
	{model.LifecycleMarginCollapse, model.DirectionFalling}: "%q is losing both demand and margin. Exit or avoid.",
}

// Suggestion renders the template for a lifecycle and direction.
func Suggestion(l model.Lifecycle, d model.Direction, keyword string) string {
	tmpl, ok := suggestionTemplates[templateKey{l, d}]
	if !ok {
		tmpl = suggestionTemplates[templateKey{model.LifecycleSaturation, model.DirectionStable}]
	}
	return fmt.Sprintf(tmpl, keyword)
}
