package repository

import (
	"clipstream/internal/model"

	"gorm.io/gorm"
)

// Correlated count expressions over the current videos row. They are
// rendered as subqueries rather than GROUP BY joins so several counts can be
// combined without row multiplication.
const (
	likesCountExpr    = "(SELECT COUNT(*) FROM video_likes vl WHERE vl.video_id = videos.id AND vl.is_like)"
	dislikesCountExpr = "(SELECT COUNT(*) FROM video_likes vl WHERE vl.video_id = videos.id AND NOT vl.is_like)"
	viewsCountExpr    = "(SELECT COUNT(*) FROM video_views vv WHERE vv.video_id = videos.id)"
	commentsCountExpr = "(SELECT COUNT(*) FROM video_comments vc WHERE vc.video_id = videos.id)"
	subsCountExpr     = "(SELECT COUNT(*) FROM subscription_items si WHERE si.subscribed_to_id = videos.author_id)"
)

// annotatedVideos starts a query over videos joined to their author channel
// with every engagement count selected. Scan the result into
// model.VideoWithStats.
func annotatedVideos(db *gorm.DB) *gorm.DB {
	return db.Table("videos").
		Select("videos.*, " +
			"channels.name AS author_name, " +
			"channels.slug AS author_slug, " +
			likesCountExpr + " AS likes_count, " +
			dislikesCountExpr + " AS dislikes_count, " +
			viewsCountExpr + " AS views_count, " +
			commentsCountExpr + " AS comments_count, " +
			subsCountExpr + " AS subs_count").
		Joins("JOIN channels ON channels.id = videos.author_id")
}

func subsCountByChannel(db *gorm.DB) *gorm.DB {
	return db.Model(&model.SubscriptionItem{}).
		Select("COUNT(*)").
		Where("subscription_items.subscribed_to_id = channels.id")
}
