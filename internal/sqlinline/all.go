package sqlinline

// All lists every runtime statement so tooling and tests can audit them.
var All = []string{
	QInsertAccount,
	QInsertProfile,
	QSelectAccountByEmail,
	QDeleteAccount,
	QSelectProfileByID,
	QUpdateProfile,
	QSetPlanByEmail,
	QInsertSession,
	QSelectSessionByID,
	QSelectActiveSessions,
	QRevokeSession,
	QRevokeUserSessions,
	QSelectDocumentsByOwner,
	QInsertDocument,
	QUpdateDocument,
	QDeleteDocument,
}
