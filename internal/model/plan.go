package model

// Plan はユーザーの課金プランを表す派生値オブジェクト。
// 永続化されず、リクエストごとにUserの課金フィールドから再計算される。
type Plan struct {
	Name          string
	Description   string
	IsPro         bool
	StripePriceID string
	// CurrentPeriodEnd は現在の課金期間の終了時刻（エポックミリ秒）。
	// 未課金ユーザーは0。
	CurrentPeriodEnd int64
}

// FreePlan は無料プランの定義。記事作成数に上限がある。
var FreePlan = Plan{
	Name:        "Free",
	Description: "記事は3件まで作成できます。",
}

// ProPlan は有料プランの定義。記事作成数は無制限。
var ProPlan = Plan{
	Name:        "PRO",
	Description: "記事を無制限に作成できます。",
	IsPro:       true,
}
